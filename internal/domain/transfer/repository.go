package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists transfer requests. Terminal transitions are guarded on
// status = pending, so between a concurrent accept, reject and expiry sweep
// whichever commits first wins.
type Repository interface {
	// Create debits the transfer fee from the initiating account and
	// inserts the pending request in one transaction. Returns
	// ErrTransferPending when the device already has a pending request;
	// the debit is rolled back in that case.
	Create(ctx context.Context, r *Request, fee int64) error

	GetByID(ctx context.Context, transferID uuid.UUID) (*Request, error)
	GetPendingByDevice(ctx context.Context, deviceID uuid.UUID) (*Request, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Request, error)

	// Accept resolves the request, flips device ownership, marks the device
	// transferred-then-active under the new owner, resets its verification,
	// and appends the transfer history entry, all in one transaction.
	// Returns ErrAlreadyResolved if the request is no longer pending.
	Accept(ctx context.Context, transferID uuid.UUID, newOwnerID uuid.UUID, at time.Time) error

	// Reject resolves the request and releases the device. No fee refund.
	Reject(ctx context.Context, transferID uuid.UUID, at time.Time) error

	// MarkExpired moves a single pending request past its deadline to
	// expired. Used for lazy expiry on read.
	MarkExpired(ctx context.Context, transferID uuid.UUID, at time.Time) error

	// ExpireOverdue sweeps every pending request past its deadline to
	// expired and reports how many rows it moved. Idempotent.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
