package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists wallets and their append-only transaction log.
type Repository interface {
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*Wallet, error)

	// Credit increases the balance and appends a transaction. Amount must
	// be positive.
	Credit(ctx context.Context, accountID uuid.UUID, amount int64, reference string) error

	// Debit decreases the balance and appends a transaction. The update is
	// guarded on balance >= amount; ErrInsufficientBalance otherwise.
	Debit(ctx context.Context, accountID uuid.UUID, amount int64, reference string) error

	Transactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
}
