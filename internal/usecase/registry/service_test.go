package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storda-registry/internal/blacklist"
	"storda-registry/internal/config"
	domainAccount "storda-registry/internal/domain/account"
	"storda-registry/internal/domain/device"
	domainLedger "storda-registry/internal/domain/ledger"
	"storda-registry/internal/events"
	"storda-registry/internal/infrastructure/database/memory"

	"github.com/google/uuid"
)

// failingChecker simulates an unreachable IMEI registry.
type failingChecker struct{}

func (failingChecker) Check(context.Context, string) (*blacklist.Result, error) {
	return nil, errors.New("registry unreachable")
}

func testConfig() *config.Config {
	return &config.Config{
		Fees: config.FeeConfig{Registration: 100, Transfer: 100},
	}
}

func newOwner(t *testing.T, repos *memory.Repositories, balance int64) uuid.UUID {
	t.Helper()
	a := &domainAccount.Account{
		Email:    uuid.NewString() + "@example.com",
		FullName: "Test Owner",
		Role:     "user",
	}
	if err := repos.Accounts.Create(context.Background(), a, balance); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a.ID
}

func newService(repos *memory.Repositories) *Service {
	return NewService(repos.Devices, blacklist.NewStaticChecker(), events.NopPublisher{}, testConfig())
}

func TestRegisterDebitsFee(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)
	ctx := context.Background()

	resp, err := svc.Register(ctx, owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Status != string(device.StatusActive) {
		t.Fatalf("expected active status, got %s", resp.Status)
	}
	if resp.VerificationStatus != string(device.VerificationPending) {
		t.Fatalf("expected pending, got %s", resp.VerificationStatus)
	}
	if resp.VerificationMethod != string(device.MethodNone) {
		t.Fatalf("expected no method before evidence, got %s", resp.VerificationMethod)
	}
	if len(resp.Code) != 10 || resp.Code[:4] != "STD-" {
		t.Fatalf("unexpected device code %q", resp.Code)
	}

	wallet, err := repos.Ledger.GetByAccount(ctx, owner)
	if err != nil {
		t.Fatalf("GetByAccount: %v", err)
	}
	if wallet.Balance != 400 {
		t.Fatalf("expected balance 400 after fee, got %d", wallet.Balance)
	}
}

func TestRegisterWithEvidenceStartsPending(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)

	resp, err := svc.Register(context.Background(), owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
		ReceiptURL: "https://evidence.example.com/receipt.pdf",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.VerificationStatus != string(device.VerificationPending) {
		t.Fatalf("expected pending, got %s", resp.VerificationStatus)
	}
	if resp.VerificationMethod != string(device.MethodReceipt) {
		t.Fatalf("expected receipt method, got %s", resp.VerificationMethod)
	}
}

func TestRegisterRejectsMalformedIMEI(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)

	for _, imei := range []string{"12345678901234", "1234567890123456", ""} {
		_, err := svc.Register(context.Background(), owner, &RegisterDeviceRequest{
			IMEI: imei, Brand: "Samsung", Model: "Galaxy S24",
		})
		if !errors.Is(err, device.ErrInvalidIMEI) {
			t.Fatalf("imei %q: expected ErrInvalidIMEI, got %v", imei, err)
		}
	}

	// Formatting characters are stripped before validation.
	if _, err := svc.Register(context.Background(), owner, &RegisterDeviceRequest{
		IMEI: "123456-789-012345", Brand: "Samsung", Model: "Galaxy S24",
	}); err != nil {
		t.Fatalf("formatted IMEI: %v", err)
	}
}

func TestRegisterRejectsDuplicateIMEIAndRestoresBalance(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	first := newOwner(t, repos, 500)
	second := newOwner(t, repos, 500)
	ctx := context.Background()

	req := &RegisterDeviceRequest{IMEI: "123456789012345", Brand: "Apple", Model: "iPhone 15"}
	if _, err := svc.Register(ctx, first, req); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	if _, err := svc.Register(ctx, second, req); !errors.Is(err, device.ErrDuplicateIMEI) {
		t.Fatalf("expected ErrDuplicateIMEI, got %v", err)
	}

	wallet, err := repos.Ledger.GetByAccount(ctx, second)
	if err != nil {
		t.Fatalf("GetByAccount: %v", err)
	}
	if wallet.Balance != 500 {
		t.Fatalf("failed registration must not cost anything, balance %d", wallet.Balance)
	}
}

func TestRegisterRejectsBlacklistedIMEI(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)
	ctx := context.Background()

	_, err := svc.Register(ctx, owner, &RegisterDeviceRequest{
		IMEI: "123456789010000", Brand: "Samsung", Model: "Galaxy S24",
	})
	if !errors.Is(err, device.ErrBlacklisted) {
		t.Fatalf("expected ErrBlacklisted, got %v", err)
	}

	wallet, err := repos.Ledger.GetByAccount(ctx, owner)
	if err != nil {
		t.Fatalf("GetByAccount: %v", err)
	}
	if wallet.Balance != 500 {
		t.Fatalf("blacklist rejection must not cost anything, balance %d", wallet.Balance)
	}
}

func TestRegisterFlagsDeviceWhenRegistryUnreachable(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Devices, failingChecker{}, events.NopPublisher{}, testConfig())
	owner := newOwner(t, repos, 500)

	resp, err := svc.Register(context.Background(), owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !resp.BlacklistFlagged {
		t.Fatal("expected device flagged for re-check")
	}
	if resp.VerificationStatus != string(device.VerificationUnverified) {
		t.Fatalf("flagged device must start unverified, got %s", resp.VerificationStatus)
	}
}

func TestRegisterRejectsInsufficientBalance(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 50)

	_, err := svc.Register(context.Background(), owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	})
	if !errors.Is(err, domainLedger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestReportAndRecover(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)
	stranger := newOwner(t, repos, 500)
	ctx := context.Background()

	registered, err := svc.Register(ctx, owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Report(ctx, stranger, registered.ID, &ReportRequest{Kind: "stolen"}); !errors.Is(err, device.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	reported, err := svc.Report(ctx, owner, registered.ID, &ReportRequest{Kind: "stolen", Reason: "taken at the market"})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if reported.Status != string(device.StatusStolen) {
		t.Fatalf("expected stolen, got %s", reported.Status)
	}

	// A stolen device cannot be reported lost; it must be recovered first.
	if _, err := svc.Report(ctx, owner, registered.ID, &ReportRequest{Kind: "lost"}); !errors.Is(err, device.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	recovered, err := svc.Recover(ctx, owner, registered.ID)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if recovered.Status != string(device.StatusActive) {
		t.Fatalf("expected active, got %s", recovered.Status)
	}

	history, err := svc.History(ctx, owner, registered.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var actions []string
	for _, e := range history {
		actions = append(actions, e.Action)
	}
	want := []string{"registered", "reported_stolen", "recovered"}
	if len(actions) != len(want) {
		t.Fatalf("expected history %v, got %v", want, actions)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("expected history %v, got %v", want, actions)
		}
	}
}

func TestGenerateCodeShape(t *testing.T) {
	svc := newService(memory.NewRepositories())

	for i := 0; i < 50; i++ {
		code, err := svc.generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != 10 || code[:4] != "STD-" {
			t.Fatalf("unexpected code shape %q", code)
		}
		for _, r := range code[4:] {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q uses character outside the alphabet", code)
			}
		}
	}
}

func TestGetByCode(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)
	stranger := newOwner(t, repos, 500)
	ctx := context.Background()

	registered, err := svc.Register(ctx, owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	found, err := svc.GetByCode(ctx, owner, registered.Code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if found.ID != registered.ID {
		t.Fatalf("expected device %s, got %s", registered.ID, found.ID)
	}

	if _, err := svc.GetByCode(ctx, stranger, registered.Code); !errors.Is(err, device.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.GetByCode(ctx, owner, "STD-ZZZZZZ"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestLookupHidesOwner(t *testing.T) {
	repos := memory.NewRepositories()
	svc := newService(repos)
	owner := newOwner(t, repos, 500)
	ctx := context.Background()

	if _, err := svc.Register(ctx, owner, &RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	lookup, err := svc.Lookup(ctx, "123456789012345")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if lookup.Status != string(device.StatusActive) {
		t.Fatalf("expected active, got %s", lookup.Status)
	}

	if _, err := svc.Lookup(ctx, "999999999999999"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}
