package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainAccount "storda-registry/internal/domain/account"
	"storda-registry/internal/infrastructure/database/postgres/models"

	appErrors "storda-registry/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository implements domain account.Repository.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) domainAccount.Repository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domainAccount.Account, signupBonus int64) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	a.IsActive = true

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbModel := toAccountModel(a)
		if err := tx.Create(dbModel).Error; err != nil {
			if strings.Contains(err.Error(), "duplicate key value") {
				return appErrors.ErrAccountAlreadyExists
			}
			return fmt.Errorf("failed to create account: %w", err)
		}

		wallet := &models.WalletModel{
			ID:        uuid.New(),
			AccountID: a.ID,
			Balance:   0,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := tx.Create(wallet).Error; err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}

		if signupBonus > 0 {
			if err := creditTx(tx, a.ID, signupBonus, "signup_bonus"); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (*domainAccount.Account, error) {
	var dbModel models.AccountModel
	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return toAccountEntity(&dbModel), nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domainAccount.Account, error) {
	var dbModel models.AccountModel
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return toAccountEntity(&dbModel), nil
}

func (r *AccountRepository) GetByContact(ctx context.Context, contact string) (*domainAccount.Account, error) {
	var dbModel models.AccountModel
	err := r.db.WithContext(ctx).
		Where("email = ? OR phone_number = ?", contact, contact).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by contact: %w", err)
	}

	return toAccountEntity(&dbModel), nil
}

func (r *AccountRepository) SetPin(ctx context.Context, accountID uuid.UUID, pinHashed string) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"pin_hashed": pinHashed,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to set PIN: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrAccountNotFound
	}

	return nil
}

func toAccountModel(a *domainAccount.Account) *models.AccountModel {
	return &models.AccountModel{
		ID:             a.ID,
		Email:          a.Email,
		PhoneNumber:    a.PhoneNumber,
		FullName:       a.FullName,
		PasswordHashed: a.PasswordHashed,
		PinHashed:      a.PinHashed,
		Role:           a.Role,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAccountEntity(m *models.AccountModel) *domainAccount.Account {
	return &domainAccount.Account{
		ID:             m.ID,
		Email:          m.Email,
		PhoneNumber:    m.PhoneNumber,
		FullName:       m.FullName,
		PasswordHashed: m.PasswordHashed,
		PinHashed:      m.PinHashed,
		Role:           m.Role,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
