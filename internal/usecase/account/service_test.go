package account

import (
	"context"
	"errors"
	"testing"

	"storda-registry/internal/config"
	"storda-registry/internal/infrastructure/database/memory"
	appErrors "storda-registry/pkg/errors"

	"github.com/google/uuid"
)

// fakePinGate counts failures in memory and locks after maxAttempts.
type fakePinGate struct {
	maxAttempts int
	failures    map[uuid.UUID]int
	locked      map[uuid.UUID]bool
}

func newFakePinGate(maxAttempts int) *fakePinGate {
	return &fakePinGate{
		maxAttempts: maxAttempts,
		failures:    make(map[uuid.UUID]int),
		locked:      make(map[uuid.UUID]bool),
	}
}

func (g *fakePinGate) Allowed(_ context.Context, accountID uuid.UUID) (bool, error) {
	return !g.locked[accountID], nil
}

func (g *fakePinGate) RecordFailure(_ context.Context, accountID uuid.UUID) error {
	g.failures[accountID]++
	if g.failures[accountID] >= g.maxAttempts {
		g.locked[accountID] = true
	}
	return nil
}

func (g *fakePinGate) Reset(_ context.Context, accountID uuid.UUID) error {
	g.failures[accountID] = 0
	delete(g.locked, accountID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:             "test-secret",
			ExpiryHours:        24,
			RefreshExpiryHours: 168,
		},
		Fees: config.FeeConfig{
			Registration: 100,
			Transfer:     100,
			SignupBonus:  500,
		},
	}
}

func TestSignUpSeedsWalletWithBonus(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Accounts, newFakePinGate(5), testConfig())

	resp, err := svc.SignUp(context.Background(), &SignUpRequest{
		Email:    "owner@example.com",
		FullName: "Test Owner",
		Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	wallet, err := repos.Ledger.GetByAccount(context.Background(), resp.Account.ID)
	if err != nil {
		t.Fatalf("GetByAccount: %v", err)
	}
	if wallet.Balance != 500 {
		t.Fatalf("expected signup bonus of 500, got %d", wallet.Balance)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Accounts, newFakePinGate(5), testConfig())

	req := &SignUpRequest{Email: "dup@example.com", FullName: "First", Password: "Sup3rSecret"}
	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, appErrors.ErrAccountAlreadyExists) {
		t.Fatalf("expected ErrAccountAlreadyExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Accounts, newFakePinGate(5), testConfig())

	if _, err := svc.SignUp(context.Background(), &SignUpRequest{
		Email: "login@example.com", FullName: "Login Test", Password: "Sup3rSecret",
	}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "login@example.com", Password: "wrong-password",
	}); !errors.Is(err, appErrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{
		Email: "nobody@example.com", Password: "Sup3rSecret",
	}); !errors.Is(err, appErrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestVerifyPinLockout(t *testing.T) {
	repos := memory.NewRepositories()
	gate := newFakePinGate(5)
	svc := NewService(repos.Accounts, gate, testConfig())
	ctx := context.Background()

	resp, err := svc.SignUp(ctx, &SignUpRequest{
		Email: "pin@example.com", FullName: "Pin Test", Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	accountID := resp.Account.ID

	if err := svc.VerifyPin(ctx, accountID, "1234"); !errors.Is(err, appErrors.ErrPinNotSet) {
		t.Fatalf("expected ErrPinNotSet, got %v", err)
	}

	if err := svc.SetPin(ctx, accountID, &SetPinRequest{Pin: "4321"}); err != nil {
		t.Fatalf("SetPin: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := svc.VerifyPin(ctx, accountID, "0000"); !errors.Is(err, appErrors.ErrPinMismatch) {
			t.Fatalf("attempt %d: expected ErrPinMismatch, got %v", i+1, err)
		}
	}

	// Sixth attempt hits the lockout even with the right PIN.
	if err := svc.VerifyPin(ctx, accountID, "4321"); !errors.Is(err, appErrors.ErrPinLocked) {
		t.Fatalf("expected ErrPinLocked, got %v", err)
	}

	// Resetting the PIN clears the lockout.
	if err := svc.SetPin(ctx, accountID, &SetPinRequest{Pin: "9876"}); err != nil {
		t.Fatalf("SetPin after lockout: %v", err)
	}
	if err := svc.VerifyPin(ctx, accountID, "9876"); err != nil {
		t.Fatalf("VerifyPin after reset: %v", err)
	}
}

func TestSetPinRejectsMalformedPin(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Accounts, newFakePinGate(5), testConfig())
	ctx := context.Background()

	resp, err := svc.SignUp(ctx, &SignUpRequest{
		Email: "badpin@example.com", FullName: "Bad Pin", Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	for _, pin := range []string{"123", "12345", "12a4", ""} {
		if err := svc.SetPin(ctx, resp.Account.ID, &SetPinRequest{Pin: pin}); err == nil {
			t.Fatalf("expected error for pin %q", pin)
		}
	}
}
