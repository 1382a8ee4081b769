package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletModel represents the database model for per-account balances.
type WalletModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Balance   int64     `gorm:"not null;default:0;check:balance >= 0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (WalletModel) TableName() string {
	return "wallets"
}

// LedgerTransactionModel is the append-only transaction log.
type LedgerTransactionModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind         string    `gorm:"type:varchar(10);not null"`
	Amount       int64     `gorm:"not null"`
	Reference    string    `gorm:"type:varchar(255)"`
	BalanceAfter int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}
