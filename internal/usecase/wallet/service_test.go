package wallet

import (
	"context"
	"errors"
	"testing"

	domainAccount "storda-registry/internal/domain/account"
	"storda-registry/internal/domain/ledger"
	"storda-registry/internal/infrastructure/database/memory"

	"github.com/google/uuid"
)

func newAccount(t *testing.T, repos *memory.Repositories, bonus int64) uuid.UUID {
	t.Helper()
	a := &domainAccount.Account{
		Email:    uuid.NewString() + "@example.com",
		FullName: "Wallet Test",
		Role:     "user",
	}
	if err := repos.Accounts.Create(context.Background(), a, bonus); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a.ID
}

func TestBalanceAndTopUp(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Ledger)
	accountID := newAccount(t, repos, 500)
	ctx := context.Background()

	balance, err := svc.Balance(ctx, accountID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Balance != 500 {
		t.Fatalf("expected 500, got %d", balance.Balance)
	}

	after, err := svc.TopUp(ctx, accountID, &TopUpRequest{Amount: 250})
	if err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if after.Balance != 750 {
		t.Fatalf("expected 750, got %d", after.Balance)
	}

	if _, err := svc.Balance(ctx, uuid.New()); !errors.Is(err, ledger.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestTransactionsStatement(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Ledger)
	accountID := newAccount(t, repos, 500)
	ctx := context.Background()

	if err := repos.Ledger.Debit(ctx, accountID, 100, "device_registration:STD-ABC123"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := repos.Ledger.Debit(ctx, accountID, 100, "transfer_fee"); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	transactions, err := svc.Transactions(ctx, accountID, 10, 0)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(transactions) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(transactions))
	}
	// Newest first; the running balance decreases across the debits.
	if transactions[0].BalanceAfter != 300 {
		t.Fatalf("expected newest balance_after 300, got %d", transactions[0].BalanceAfter)
	}

	// Debits past the balance are refused.
	if err := repos.Ledger.Debit(ctx, accountID, 1000, "transfer_fee"); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
