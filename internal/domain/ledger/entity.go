package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a per-account points balance. The balance never goes negative
// and every change is paired with an appended Transaction.
type Wallet struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionKind string

const (
	KindCredit TransactionKind = "credit"
	KindDebit  TransactionKind = "debit"
)

// Transaction is one append-only ledger entry.
type Transaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Kind      TransactionKind
	Amount    int64
	// Reference describes what the movement paid for, e.g.
	// "device_registration" or "transfer_fee", plus the entity involved.
	Reference    string
	BalanceAfter int64
	CreatedAt    time.Time
}
