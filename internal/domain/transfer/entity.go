package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Request represents one in-flight ownership handoff. At most one pending
// request may exist per device at a time.
type Request struct {
	ID               uuid.UUID
	DeviceID         uuid.UUID
	FromAccountID    uuid.UUID
	ToAccountID      *uuid.UUID // set when the recipient accepts
	RecipientContact string
	ContactChannel   Channel
	RecipientName    string
	RequireID        bool
	RecipientNIN     *string
	Reason           string
	Status           Status
	CreatedAt        time.Time
	ExpiresAt        time.Time
	ResolvedAt       *time.Time
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Resolved reports whether the request has reached a terminal state.
func (r *Request) Resolved() bool {
	return r.Status != StatusPending
}

// Overdue reports whether a pending request has passed its deadline. The
// deadline is enforced here, not by the client's countdown.
func (r *Request) Overdue(now time.Time) bool {
	return r.Status == StatusPending && now.After(r.ExpiresAt)
}
