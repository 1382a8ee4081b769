// Package account implements signup, login and transaction-PIN management.
package account

import (
	"context"

	"storda-registry/internal/config"
	domain "storda-registry/internal/domain/account"
	"storda-registry/internal/logger"
	appErrors "storda-registry/pkg/errors"
	"storda-registry/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PinGate throttles PIN verification. Failures accumulate in a sliding
// window; once the window overflows the account is locked out for a while.
type PinGate interface {
	Allowed(ctx context.Context, accountID uuid.UUID) (bool, error)
	RecordFailure(ctx context.Context, accountID uuid.UUID) error
	Reset(ctx context.Context, accountID uuid.UUID) error
}

type Service struct {
	repo    domain.Repository
	pinGate PinGate
	cfg     *config.Config
}

func NewService(repo domain.Repository, pinGate PinGate, cfg *config.Config) *Service {
	return &Service{
		repo:    repo,
		pinGate: pinGate,
		cfg:     cfg,
	}
}

func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*AuthResponse, error) {
	email := utils.SanitizeEmail(req.Email)
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("WEAK_PASSWORD", err.Error(), appErrors.ErrWeakPassword)
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.NewAppError("HASH_FAILED", "Failed to process password", err)
	}

	account := &domain.Account{
		Email:          email,
		PhoneNumber:    utils.SanitizePhone(req.PhoneNumber),
		FullName:       utils.SanitizeString(req.FullName),
		PasswordHashed: hashed,
		Role:           "user",
	}

	if err := s.repo.Create(ctx, account, s.cfg.Fees.SignupBonus); err != nil {
		return nil, err
	}

	logger.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("email", account.Email),
	)

	return s.issueTokens(account)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	account, err := s.repo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		// Same response for unknown email and wrong password.
		return nil, appErrors.ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, appErrors.ErrAccountInactive
	}

	if !utils.CheckPassword(account.PasswordHashed, req.Password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueTokens(account)
}

func (s *Service) GetProfile(ctx context.Context, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// SetPin sets or replaces the 4-digit transaction PIN. The PIN is stored
// bcrypt-hashed; changing it also clears any accumulated failed attempts.
func (s *Service) SetPin(ctx context.Context, accountID uuid.UUID, req *SetPinRequest) error {
	if err := utils.ValidatePin(req.Pin); err != nil {
		return appErrors.NewAppError("INVALID_PIN", err.Error(), appErrors.ErrInvalidInput)
	}

	hashed, err := utils.HashPin(req.Pin)
	if err != nil {
		return appErrors.NewAppError("HASH_FAILED", "Failed to process PIN", err)
	}

	if err := s.repo.SetPin(ctx, accountID, hashed); err != nil {
		return err
	}

	if s.pinGate != nil {
		if err := s.pinGate.Reset(ctx, accountID); err != nil {
			logger.Warn("failed to reset pin attempts", zap.Error(err))
		}
	}
	return nil
}

// VerifyPin checks the transaction PIN under the lockout gate. It is the
// single entry point for PIN checks so that every caller shares one attempt
// budget.
func (s *Service) VerifyPin(ctx context.Context, accountID uuid.UUID, pin string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if !account.HasPin() {
		return appErrors.ErrPinNotSet
	}

	if s.pinGate != nil {
		allowed, err := s.pinGate.Allowed(ctx, accountID)
		if err != nil {
			return err
		}
		if !allowed {
			return appErrors.ErrPinLocked
		}
	}

	if !utils.CheckPin(account.PinHashed, pin) {
		if s.pinGate != nil {
			if err := s.pinGate.RecordFailure(ctx, accountID); err != nil {
				logger.Warn("failed to record pin failure", zap.Error(err))
			}
		}
		return appErrors.ErrPinMismatch
	}

	if s.pinGate != nil {
		if err := s.pinGate.Reset(ctx, accountID); err != nil {
			logger.Warn("failed to reset pin attempts", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) issueTokens(account *domain.Account) (*AuthResponse, error) {
	pair, err := utils.GenerateTokenPair(
		account.ID,
		account.Email,
		account.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.ExpiryHours,
		s.cfg.JWT.RefreshExpiryHours,
	)
	if err != nil {
		return nil, appErrors.NewAppError("TOKEN_FAILED", "Failed to generate tokens", err)
	}

	return &AuthResponse{
		Account:      toAccountResponse(account),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}
