package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainLedger "storda-registry/internal/domain/ledger"
	"storda-registry/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository implements domain ledger.Repository.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) domainLedger.Repository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) GetByAccount(ctx context.Context, accountID uuid.UUID) (*domainLedger.Wallet, error) {
	var dbModel models.WalletModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainLedger.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return toWalletEntity(&dbModel), nil
}

func (r *LedgerRepository) Credit(ctx context.Context, accountID uuid.UUID, amount int64, reference string) error {
	if amount <= 0 {
		return domainLedger.ErrInvalidAmount
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return creditTx(tx, accountID, amount, reference)
	})
}

func (r *LedgerRepository) Debit(ctx context.Context, accountID uuid.UUID, amount int64, reference string) error {
	if amount <= 0 {
		return domainLedger.ErrInvalidAmount
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return debitTx(tx, accountID, amount, reference)
	})
}

func (r *LedgerRepository) Transactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domainLedger.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var dbModels []models.LedgerTransactionModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	transactions := make([]*domainLedger.Transaction, len(dbModels))
	for i, dbModel := range dbModels {
		transactions[i] = toTransactionEntity(&dbModel)
	}

	return transactions, nil
}

// creditTx and debitTx run inside a caller-supplied transaction so that fee
// movements commit or roll back together with the device mutation they pay
// for.

func creditTx(tx *gorm.DB, accountID uuid.UUID, amount int64, reference string) error {
	result := tx.Model(&models.WalletModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to credit wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainLedger.ErrWalletNotFound
	}

	return appendTransaction(tx, accountID, domainLedger.KindCredit, amount, reference)
}

func debitTx(tx *gorm.DB, accountID uuid.UUID, amount int64, reference string) error {
	result := tx.Model(&models.WalletModel{}).
		Where("account_id = ? AND balance >= ?", accountID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to debit wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.WalletModel{}).
			Where("account_id = ?", accountID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check wallet: %w", err)
		}
		if count == 0 {
			return domainLedger.ErrWalletNotFound
		}
		return domainLedger.ErrInsufficientBalance
	}

	return appendTransaction(tx, accountID, domainLedger.KindDebit, amount, reference)
}

func appendTransaction(tx *gorm.DB, accountID uuid.UUID, kind domainLedger.TransactionKind, amount int64, reference string) error {
	var wallet models.WalletModel
	if err := tx.Where("account_id = ?", accountID).First(&wallet).Error; err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	entry := &models.LedgerTransactionModel{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         string(kind),
		Amount:       amount,
		Reference:    reference,
		BalanceAfter: wallet.Balance,
		CreatedAt:    time.Now(),
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger transaction: %w", err)
	}

	return nil
}

func toWalletEntity(m *models.WalletModel) *domainLedger.Wallet {
	return &domainLedger.Wallet{
		ID:        m.ID,
		AccountID: m.AccountID,
		Balance:   m.Balance,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toTransactionEntity(m *models.LedgerTransactionModel) *domainLedger.Transaction {
	return &domainLedger.Transaction{
		ID:           m.ID,
		AccountID:    m.AccountID,
		Kind:         domainLedger.TransactionKind(m.Kind),
		Amount:       m.Amount,
		Reference:    m.Reference,
		BalanceAfter: m.BalanceAfter,
		CreatedAt:    m.CreatedAt,
	}
}
