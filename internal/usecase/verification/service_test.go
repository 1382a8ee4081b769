package verification

import (
	"context"
	"errors"
	"testing"

	"storda-registry/internal/blacklist"
	domainAccount "storda-registry/internal/domain/account"
	"storda-registry/internal/domain/device"
	"storda-registry/internal/events"
	"storda-registry/internal/infrastructure/database/memory"

	"github.com/google/uuid"
)

func seedDevice(t *testing.T, repos *memory.Repositories, flagged bool) (uuid.UUID, *device.Device) {
	t.Helper()
	ctx := context.Background()

	a := &domainAccount.Account{
		Email:    uuid.NewString() + "@example.com",
		FullName: "Verification Test",
		Role:     "user",
	}
	if err := repos.Accounts.Create(ctx, a, 500); err != nil {
		t.Fatalf("create account: %v", err)
	}

	d := &device.Device{
		Code:               "STD-TEST01",
		IMEI:               "123456789012345",
		Brand:              "Samsung",
		Model:              "Galaxy S24",
		OwnerID:            a.ID,
		Status:             device.StatusActive,
		VerificationStatus: device.VerificationUnverified,
		VerificationMethod: device.MethodNone,
		BlacklistFlagged:   flagged,
	}
	if err := repos.Devices.Create(ctx, d, 100); err != nil {
		t.Fatalf("create device: %v", err)
	}
	return a.ID, d
}

func TestVerifySetsStatusAndMethod(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Devices, blacklist.NewStaticChecker(), events.NopPublisher{})
	ownerID, d := seedDevice(t, repos, false)
	ctx := context.Background()

	if err := svc.Verify(ctx, ownerID, d.ID, &VerifyRequest{Method: "receipt"}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	stored, err := repos.Devices.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.VerificationStatus != device.VerificationVerified {
		t.Fatalf("expected verified, got %s", stored.VerificationStatus)
	}
	if stored.VerificationMethod != device.MethodReceipt {
		t.Fatalf("expected receipt method, got %s", stored.VerificationMethod)
	}
	if stored.VerifiedAt == nil {
		t.Fatal("expected VerifiedAt to be set")
	}

	// Verifying again is rejected.
	if err := svc.Verify(ctx, ownerID, d.ID, &VerifyRequest{Method: "photo"}); !errors.Is(err, device.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestVerifyRequiresOwnership(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Devices, blacklist.NewStaticChecker(), events.NopPublisher{})
	_, d := seedDevice(t, repos, false)

	err := svc.Verify(context.Background(), uuid.New(), d.ID, &VerifyRequest{Method: "receipt"})
	if !errors.Is(err, device.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestCheckBlacklistClearsStaleFlag(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewService(repos.Devices, blacklist.NewStaticChecker(), events.NopPublisher{})
	_, d := seedDevice(t, repos, true)
	ctx := context.Background()

	result, err := svc.CheckBlacklist(ctx, d.ID)
	if err != nil {
		t.Fatalf("CheckBlacklist: %v", err)
	}
	if result.Blacklisted {
		t.Fatal("IMEI is clean, expected no hit")
	}

	stored, err := repos.Devices.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.BlacklistFlagged {
		t.Fatal("expected flag cleared after clean re-check")
	}
}

func TestCheckBlacklistRaisesFlagOnHit(t *testing.T) {
	repos := memory.NewRepositories()
	checker := blacklist.NewStaticChecker()
	checker.Add("123456789012345", "reported to carrier")
	svc := NewService(repos.Devices, checker, events.NopPublisher{})
	_, d := seedDevice(t, repos, false)
	ctx := context.Background()

	result, err := svc.CheckBlacklist(ctx, d.ID)
	if err != nil {
		t.Fatalf("CheckBlacklist: %v", err)
	}
	if !result.Blacklisted {
		t.Fatal("expected blacklist hit")
	}

	stored, err := repos.Devices.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.BlacklistFlagged {
		t.Fatal("expected device flagged after hit")
	}
}
