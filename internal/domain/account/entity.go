package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user of the registry.
type Account struct {
	ID             uuid.UUID
	Email          string
	PhoneNumber    string
	FullName       string
	PasswordHashed string
	// PinHashed is the bcrypt hash of the 4-digit transaction PIN. Empty
	// until the user sets one; comparison never happens client-side.
	PinHashed string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPin reports whether a transaction PIN has been set.
func (a *Account) HasPin() bool {
	return a.PinHashed != ""
}
