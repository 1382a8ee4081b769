package transfer

import "errors"

var (
	ErrTransferNotFound = errors.New("transfer request not found")
	ErrTransferPending  = errors.New("device already has a pending transfer request")
	ErrAlreadyResolved  = errors.New("transfer request already accepted, rejected or expired")
	ErrTransferExpired  = errors.New("transfer request has expired")
	ErrSelfTransfer     = errors.New("cannot transfer a device to its current owner")
)
