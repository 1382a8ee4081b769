package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"storda-registry/internal/blacklist"
	"storda-registry/internal/config"
	domainAccount "storda-registry/internal/domain/account"
	"storda-registry/internal/domain/device"
	domain "storda-registry/internal/domain/transfer"
	"storda-registry/internal/events"
	"storda-registry/internal/infrastructure/database/memory"
	"storda-registry/internal/usecase/registry"
	"storda-registry/internal/usecase/verification"
	appErrors "storda-registry/pkg/errors"

	"github.com/google/uuid"
)

// fakePinVerifier accepts a single PIN without any lockout bookkeeping.
type fakePinVerifier struct {
	correct string
}

func (v *fakePinVerifier) VerifyPin(_ context.Context, _ uuid.UUID, pin string) error {
	if pin != v.correct {
		return appErrors.ErrPinMismatch
	}
	return nil
}

// fakeCodeStore issues a fixed code per transfer and consumes it on verify.
type fakeCodeStore struct {
	codes map[uuid.UUID]string
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[uuid.UUID]string)}
}

func (s *fakeCodeStore) Issue(_ context.Context, transferID uuid.UUID, _ time.Duration) (string, error) {
	s.codes[transferID] = "654321"
	return "654321", nil
}

func (s *fakeCodeStore) Verify(_ context.Context, transferID uuid.UUID, code string) (bool, error) {
	stored, ok := s.codes[transferID]
	if !ok || stored != code {
		return false, nil
	}
	delete(s.codes, transferID)
	return true, nil
}

type fixture struct {
	repos     *memory.Repositories
	svc       *Service
	codes     *fakeCodeStore
	initiator uuid.UUID
	recipient uuid.UUID
	cfg       *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Fees:     config.FeeConfig{Registration: 100, Transfer: 100},
		Transfer: config.TransferConfig{Expiry: 24 * time.Hour, SweepInterval: 5 * time.Minute},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	cfg := testConfig()
	codes := newFakeCodeStore()

	initiator := &domainAccount.Account{Email: "seller@test.com", FullName: "Seller", Role: "user"}
	if err := repos.Accounts.Create(context.Background(), initiator, 500); err != nil {
		t.Fatalf("create initiator: %v", err)
	}
	recipient := &domainAccount.Account{Email: "user@test.com", FullName: "Buyer", Role: "user"}
	if err := repos.Accounts.Create(context.Background(), recipient, 500); err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	svc := NewService(
		repos.Transfers,
		repos.Devices,
		repos.Accounts,
		&fakePinVerifier{correct: "4321"},
		codes,
		LogNotifier{},
		events.NopPublisher{},
		cfg,
	)

	return &fixture{
		repos:     repos,
		svc:       svc,
		codes:     codes,
		initiator: initiator.ID,
		recipient: recipient.ID,
		cfg:       cfg,
	}
}

// seedDevice inserts a verified, active device owned by the initiator,
// bypassing the registration fee.
func (f *fixture) seedDevice(t *testing.T, imei string) *device.Device {
	t.Helper()
	now := time.Now()
	d := &device.Device{
		Code:               "STD-" + imei[9:],
		IMEI:               imei,
		Brand:              "Samsung",
		Model:              "Galaxy S24",
		OwnerID:            f.initiator,
		Status:             device.StatusActive,
		VerificationStatus: device.VerificationVerified,
		VerificationMethod: device.MethodReceipt,
		VerifiedAt:         &now,
	}
	if err := f.repos.Devices.Create(context.Background(), d, 0); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return d
}

func (f *fixture) initiateRequest(d *device.Device) *InitiateRequest {
	return &InitiateRequest{
		DeviceID:         d.ID,
		RecipientContact: "user@test.com",
		ContactChannel:   "email",
		RecipientName:    "Buyer",
		Pin:              "4321",
	}
}

func (f *fixture) balance(t *testing.T, accountID uuid.UUID) int64 {
	t.Helper()
	wallet, err := f.repos.Ledger.GetByAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetByAccount: %v", err)
	}
	return wallet.Balance
}

func TestInitiatePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDevice(t, "123456789012345")

	cases := []struct {
		name    string
		caller  uuid.UUID
		mutate  func(*InitiateRequest)
		prepare func(t *testing.T)
		wantErr error
	}{
		{
			name:    "not the owner",
			caller:  f.recipient,
			wantErr: device.ErrNotOwner,
		},
		{
			name:   "device not active",
			caller: f.initiator,
			prepare: func(t *testing.T) {
				if err := f.repos.Devices.UpdateStatus(ctx, d.ID, device.StatusActive, device.StatusStolen); err != nil {
					t.Fatalf("UpdateStatus: %v", err)
				}
			},
			wantErr: device.ErrUnavailable,
		},
		{
			name:   "device not verified",
			caller: f.initiator,
			prepare: func(t *testing.T) {
				if err := f.repos.Devices.UpdateStatus(ctx, d.ID, device.StatusStolen, device.StatusActive); err != nil {
					t.Fatalf("UpdateStatus: %v", err)
				}
				if err := f.repos.Devices.SetVerification(ctx, d.ID, device.VerificationUnverified, device.MethodNone, time.Time{}); err != nil {
					t.Fatalf("SetVerification: %v", err)
				}
			},
			wantErr: device.ErrNotVerified,
		},
		{
			name:   "transfer to self",
			caller: f.initiator,
			prepare: func(t *testing.T) {
				if err := f.repos.Devices.SetVerification(ctx, d.ID, device.VerificationVerified, device.MethodReceipt, time.Now()); err != nil {
					t.Fatalf("SetVerification: %v", err)
				}
			},
			mutate: func(r *InitiateRequest) {
				r.RecipientContact = "seller@test.com"
			},
			wantErr: domain.ErrSelfTransfer,
		},
		{
			name:   "malformed email contact",
			caller: f.initiator,
			mutate: func(r *InitiateRequest) {
				r.RecipientContact = "definitely-not-an-email!!!"
			},
			wantErr: appErrors.ErrInvalidInput,
		},
		{
			name:   "malformed phone contact",
			caller: f.initiator,
			mutate: func(r *InitiateRequest) {
				r.ContactChannel = "phone"
				r.RecipientContact = "call me maybe"
			},
			wantErr: appErrors.ErrInvalidInput,
		},
		{
			name:   "missing NIN when ID required",
			caller: f.initiator,
			mutate: func(r *InitiateRequest) {
				r.RequireID = true
				r.RecipientNIN = "12345"
			},
			wantErr: appErrors.ErrInvalidInput,
		},
		{
			name:   "wrong PIN",
			caller: f.initiator,
			mutate: func(r *InitiateRequest) {
				r.Pin = "0000"
			},
			wantErr: appErrors.ErrPinMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.prepare != nil {
				tc.prepare(t)
			}
			req := f.initiateRequest(d)
			if tc.mutate != nil {
				tc.mutate(req)
			}
			if _, err := f.svc.Initiate(ctx, tc.caller, req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// None of the failed attempts may have cost anything.
	if got := f.balance(t, f.initiator); got != 500 {
		t.Fatalf("failed initiations must not cost anything, balance %d", got)
	}
}

func TestInitiateChargesOnceAndBlocksSecondPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDevice(t, "123456789012345")

	resp, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if resp.Status != string(domain.StatusPending) {
		t.Fatalf("expected pending, got %s", resp.Status)
	}
	if got := f.balance(t, f.initiator); got != 400 {
		t.Fatalf("expected balance 400 after fee, got %d", got)
	}

	if _, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d)); !errors.Is(err, domain.ErrTransferPending) {
		t.Fatalf("expected ErrTransferPending, got %v", err)
	}
	if got := f.balance(t, f.initiator); got != 400 {
		t.Fatalf("rejected second initiation must not cost anything, balance %d", got)
	}
}

func TestAcceptCompletesHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDevice(t, "123456789012345")

	resp, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// Wrong code is rejected.
	if _, err := f.svc.Accept(ctx, f.recipient, resp.ID, &AcceptRequest{Code: "000000"}); !errors.Is(err, appErrors.ErrOTPMismatch) {
		t.Fatalf("expected ErrOTPMismatch, got %v", err)
	}

	// A stranger matching neither contact cannot accept.
	stranger := &domainAccount.Account{Email: "stranger@test.com", FullName: "Stranger", Role: "user"}
	if err := f.repos.Accounts.Create(ctx, stranger, 0); err != nil {
		t.Fatalf("create stranger: %v", err)
	}
	if _, err := f.svc.Accept(ctx, stranger.ID, resp.ID, &AcceptRequest{Code: "654321"}); !errors.Is(err, appErrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	accepted, err := f.svc.Accept(ctx, f.recipient, resp.ID, &AcceptRequest{Code: "654321"})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != string(domain.StatusAccepted) {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
	if accepted.ToAccountID == nil || *accepted.ToAccountID != f.recipient {
		t.Fatal("expected recipient recorded as new owner")
	}

	stored, err := f.repos.Devices.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.OwnerID != f.recipient {
		t.Fatal("expected ownership flipped to recipient")
	}
	if stored.Status != device.StatusTransferred {
		t.Fatalf("expected transferred, got %s", stored.Status)
	}
	if stored.VerificationStatus != device.VerificationPending {
		t.Fatalf("verification must reset for the new owner, got %s", stored.VerificationStatus)
	}

	// Exactly one transfer history entry.
	entries, err := f.repos.Devices.HistoryForDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("HistoryForDevice: %v", err)
	}
	var transferEntries int
	for _, e := range entries {
		if e.Action == device.ActionTransferAccepted {
			transferEntries++
		}
	}
	if transferEntries != 1 {
		t.Fatalf("expected exactly 1 transfer history entry, got %d", transferEntries)
	}

	// Accepting again returns the settled state without another mutation.
	again, err := f.svc.Accept(ctx, f.recipient, resp.ID, &AcceptRequest{Code: "654321"})
	if err != nil {
		t.Fatalf("idempotent Accept: %v", err)
	}
	if again.Status != string(domain.StatusAccepted) {
		t.Fatalf("expected accepted, got %s", again.Status)
	}
	entries, _ = f.repos.Devices.HistoryForDevice(ctx, d.ID)
	transferEntries = 0
	for _, e := range entries {
		if e.Action == device.ActionTransferAccepted {
			transferEntries++
		}
	}
	if transferEntries != 1 {
		t.Fatalf("idempotent accept must not duplicate history, got %d entries", transferEntries)
	}
}

func TestAcceptBlockedWhenDeviceReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDevice(t, "123456789012345")

	resp, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if err := f.repos.Devices.UpdateStatus(ctx, d.ID, device.StatusActive, device.StatusStolen); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if _, err := f.svc.Accept(ctx, f.recipient, resp.ID, &AcceptRequest{Code: "654321"}); !errors.Is(err, device.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRejectKeepsFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDevice(t, "123456789012345")

	resp, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	rejected, err := f.svc.Reject(ctx, f.recipient, resp.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != string(domain.StatusRejected) {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}

	// No refund.
	if got := f.balance(t, f.initiator); got != 400 {
		t.Fatalf("rejection must not refund the fee, balance %d", got)
	}

	// Device untouched and free for a new transfer.
	stored, err := f.repos.Devices.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.OwnerID != f.initiator || stored.Status != device.StatusActive {
		t.Fatal("rejected transfer must leave the device untouched")
	}
	if _, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d)); err != nil {
		t.Fatalf("new transfer after rejection: %v", err)
	}
}

func TestExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDevice(t, "123456789012345")

	resp, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// Sweep with a clock past the deadline.
	moved, err := f.repos.Transfers.ExpireOverdue(ctx, time.Now().Add(f.cfg.Transfer.Expiry+time.Hour))
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected 1 expired transfer, got %d", moved)
	}

	if _, err := f.svc.Accept(ctx, f.recipient, resp.ID, &AcceptRequest{Code: "654321"}); !errors.Is(err, domain.ErrTransferExpired) {
		t.Fatalf("expected ErrTransferExpired, got %v", err)
	}

	// Sweep is idempotent.
	moved, err = f.repos.Transfers.ExpireOverdue(ctx, time.Now().Add(f.cfg.Transfer.Expiry+time.Hour))
	if err != nil {
		t.Fatalf("second ExpireOverdue: %v", err)
	}
	if moved != 0 {
		t.Fatalf("second sweep must move nothing, got %d", moved)
	}

	// No refund on expiry, and the device is free again.
	if got := f.balance(t, f.initiator); got != 400 {
		t.Fatalf("expiry must not refund the fee, balance %d", got)
	}
	if _, err := f.svc.Initiate(ctx, f.initiator, f.initiateRequest(d)); err != nil {
		t.Fatalf("new transfer after expiry: %v", err)
	}
}

// TestFullHandoff walks the whole flow through the public services:
// register, verify, initiate, accept.
func TestFullHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registrySvc := registry.NewService(f.repos.Devices, blacklist.NewStaticChecker(), events.NopPublisher{}, f.cfg)
	verifySvc := verification.NewService(f.repos.Devices, blacklist.NewStaticChecker(), events.NopPublisher{})

	registered, err := registrySvc.Register(ctx, f.initiator, &registry.RegisterDeviceRequest{
		IMEI: "123456789012345", Brand: "Samsung", Model: "Galaxy S24",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := f.balance(t, f.initiator); got != 400 {
		t.Fatalf("expected balance 400 after registration fee, got %d", got)
	}

	// Unverified devices cannot be handed off, and a blocked attempt is free.
	if _, err := f.svc.Initiate(ctx, f.initiator, &InitiateRequest{
		DeviceID:         registered.ID,
		RecipientContact: "user@test.com",
		ContactChannel:   "email",
		RecipientName:    "Buyer",
		Pin:              "4321",
	}); !errors.Is(err, device.ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified before verification, got %v", err)
	}
	if got := f.balance(t, f.initiator); got != 400 {
		t.Fatalf("blocked initiate must not cost anything, balance %d", got)
	}

	if err := verifySvc.Verify(ctx, f.initiator, registered.ID, &verification.VerifyRequest{Method: "receipt"}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	initiated, err := f.svc.Initiate(ctx, f.initiator, &InitiateRequest{
		DeviceID:         registered.ID,
		RecipientContact: "user@test.com",
		ContactChannel:   "email",
		RecipientName:    "Buyer",
		Pin:              "4321",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if got := f.balance(t, f.initiator); got != 300 {
		t.Fatalf("expected balance 300 after transfer fee, got %d", got)
	}

	accepted, err := f.svc.Accept(ctx, f.recipient, initiated.ID, &AcceptRequest{Code: "654321"})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != string(domain.StatusAccepted) {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	stored, err := f.repos.Devices.GetByID(ctx, registered.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.OwnerID != f.recipient || stored.Status != device.StatusTransferred {
		t.Fatal("expected device transferred to recipient")
	}

	var transferEntries int
	entries, _ := f.repos.Devices.HistoryForDevice(ctx, registered.ID)
	for _, e := range entries {
		if e.Action == device.ActionTransferAccepted {
			transferEntries++
		}
	}
	if transferEntries != 1 {
		t.Fatalf("expected exactly 1 transfer history entry, got %d", transferEntries)
	}
}
