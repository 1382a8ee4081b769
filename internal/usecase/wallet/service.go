// Package wallet exposes the points account: balance, statement and
// top-ups. Fees are debited by the registry and transfer services inside
// their own transactions, never here.
package wallet

import (
	"context"
	"time"

	"storda-registry/internal/domain/ledger"
	"storda-registry/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1,max=1000000"`
}

type BalanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransactionResponse struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	Amount       int64     `json:"amount"`
	Reference    string    `json:"reference"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type Service struct {
	ledger ledger.Repository
}

func NewService(ledgerRepo ledger.Repository) *Service {
	return &Service{ledger: ledgerRepo}
}

func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (*BalanceResponse, error) {
	wallet, err := s.ledger.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		AccountID: wallet.AccountID,
		Balance:   wallet.Balance,
		UpdatedAt: wallet.UpdatedAt,
	}, nil
}

// TopUp credits purchased points. Payment capture happens upstream; by the
// time this is called the money has already moved.
func (s *Service) TopUp(ctx context.Context, accountID uuid.UUID, req *TopUpRequest) (*BalanceResponse, error) {
	if err := s.ledger.Credit(ctx, accountID, req.Amount, "topup"); err != nil {
		return nil, err
	}

	logger.Info("wallet topped up",
		zap.String("account_id", accountID.String()),
		zap.Int64("amount", req.Amount),
	)

	return s.Balance(ctx, accountID)
}

func (s *Service) Transactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*TransactionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.ledger.Transactions(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]*TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, &TransactionResponse{
			ID:           tx.ID,
			Kind:         string(tx.Kind),
			Amount:       tx.Amount,
			Reference:    tx.Reference,
			BalanceAfter: tx.BalanceAfter,
			CreatedAt:    tx.CreatedAt,
		})
	}
	return out, nil
}
