package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	// Create inserts the account together with its wallet (seeded with the
	// signup bonus) in one transaction.
	Create(ctx context.Context, a *Account, signupBonus int64) error
	GetByID(ctx context.Context, accountID uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// GetByContact resolves an account by email or phone number, whichever
	// matches. Used to pair a transfer recipient with an account.
	GetByContact(ctx context.Context, contact string) (*Account, error)
	SetPin(ctx context.Context, accountID uuid.UUID, pinHashed string) error
}
