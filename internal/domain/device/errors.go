package device

import "errors"

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrDuplicateIMEI     = errors.New("a device with this IMEI is already registered")
	ErrInvalidIMEI       = errors.New("IMEI must be exactly 15 digits")
	ErrBlacklisted       = errors.New("device IMEI is blacklisted")
	ErrIllegalTransition = errors.New("illegal device status transition")
	ErrNotOwner          = errors.New("device does not belong to this account")
	ErrNotVerified       = errors.New("device ownership is not verified")
	ErrUnavailable       = errors.New("device is reported lost or stolen")
	ErrAlreadyVerified   = errors.New("device is already verified")
)
