// Package memory provides in-memory implementations of the domain
// repositories. They mirror the transactional guarantees of the postgres
// implementations closely enough for service-level tests: fee debits roll
// back when the paired mutation fails, uniqueness is enforced before any
// state changes, and terminal transitions are first-writer-wins.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainAccount "storda-registry/internal/domain/account"
	domainDevice "storda-registry/internal/domain/device"
	domainLedger "storda-registry/internal/domain/ledger"
	domainTransfer "storda-registry/internal/domain/transfer"

	appErrors "storda-registry/pkg/errors"

	"github.com/google/uuid"
)

type store struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*domainAccount.Account
	wallets   map[uuid.UUID]*domainLedger.Wallet // keyed by account ID
	ledger    []*domainLedger.Transaction
	devices   map[uuid.UUID]*domainDevice.Device
	history   []*domainDevice.HistoryEntry
	transfers map[uuid.UUID]*domainTransfer.Request
}

// Repositories bundles the in-memory repositories over one shared store.
type Repositories struct {
	Accounts  domainAccount.Repository
	Devices   domainDevice.Repository
	Transfers domainTransfer.Repository
	Ledger    domainLedger.Repository

	s *store
}

func NewRepositories() *Repositories {
	s := &store{
		accounts:  make(map[uuid.UUID]*domainAccount.Account),
		wallets:   make(map[uuid.UUID]*domainLedger.Wallet),
		devices:   make(map[uuid.UUID]*domainDevice.Device),
		transfers: make(map[uuid.UUID]*domainTransfer.Request),
	}
	return &Repositories{
		Accounts:  &accountRepository{s: s},
		Devices:   &deviceRepository{s: s},
		Transfers: &transferRepository{s: s},
		Ledger:    &ledgerRepository{s: s},
		s:         s,
	}
}

// locked-store helpers; callers must hold s.mu.

func (s *store) debit(accountID uuid.UUID, amount int64, reference string) error {
	wallet, ok := s.wallets[accountID]
	if !ok {
		return domainLedger.ErrWalletNotFound
	}
	if wallet.Balance < amount {
		return domainLedger.ErrInsufficientBalance
	}
	wallet.Balance -= amount
	wallet.UpdatedAt = time.Now()
	s.appendTransaction(accountID, domainLedger.KindDebit, amount, reference, wallet.Balance)
	return nil
}

func (s *store) credit(accountID uuid.UUID, amount int64, reference string) error {
	wallet, ok := s.wallets[accountID]
	if !ok {
		return domainLedger.ErrWalletNotFound
	}
	wallet.Balance += amount
	wallet.UpdatedAt = time.Now()
	s.appendTransaction(accountID, domainLedger.KindCredit, amount, reference, wallet.Balance)
	return nil
}

func (s *store) appendTransaction(accountID uuid.UUID, kind domainLedger.TransactionKind, amount int64, reference string, balanceAfter int64) {
	s.ledger = append(s.ledger, &domainLedger.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		Reference:    reference,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	})
}

// accountRepository

type accountRepository struct {
	s *store
}

func (r *accountRepository) Create(_ context.Context, a *domainAccount.Account, signupBonus int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.Email == a.Email {
			return appErrors.ErrAccountAlreadyExists
		}
	}

	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	a.IsActive = true

	copied := *a
	r.s.accounts[a.ID] = &copied
	r.s.wallets[a.ID] = &domainLedger.Wallet{
		ID:        uuid.New(),
		AccountID: a.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if signupBonus > 0 {
		return r.s.credit(a.ID, signupBonus, "signup_bonus")
	}
	return nil
}

func (r *accountRepository) GetByID(_ context.Context, accountID uuid.UUID) (*domainAccount.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil, appErrors.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *accountRepository) GetByEmail(_ context.Context, email string) (*domainAccount.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, appErrors.ErrAccountNotFound
}

func (r *accountRepository) GetByContact(_ context.Context, contact string) (*domainAccount.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.accounts {
		if a.Email == contact || a.PhoneNumber == contact {
			copied := *a
			return &copied, nil
		}
	}
	return nil, appErrors.ErrAccountNotFound
}

func (r *accountRepository) SetPin(_ context.Context, accountID uuid.UUID, pinHashed string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[accountID]
	if !ok {
		return appErrors.ErrAccountNotFound
	}
	a.PinHashed = pinHashed
	a.UpdatedAt = time.Now()
	return nil
}

// deviceRepository

type deviceRepository struct {
	s *store
}

func (r *deviceRepository) Create(_ context.Context, d *domainDevice.Device, fee int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.devices {
		if existing.IMEI == d.IMEI {
			return domainDevice.ErrDuplicateIMEI
		}
	}

	if fee > 0 {
		if err := r.s.debit(d.OwnerID, fee, "device_registration:"+d.Code); err != nil {
			return err
		}
	}

	d.ID = uuid.New()
	d.RegisteredAt = time.Now()
	d.UpdatedAt = time.Now()

	copied := *d
	r.s.devices[d.ID] = &copied

	r.s.history = append(r.s.history, &domainDevice.HistoryEntry{
		ID:            uuid.New(),
		DeviceID:      d.ID,
		FromAccountID: d.OwnerID,
		Action:        domainDevice.ActionRegistered,
		Method:        d.VerificationMethod,
		OccurredAt:    d.RegisteredAt,
	})

	return nil
}

func (r *deviceRepository) GetByID(_ context.Context, deviceID uuid.UUID) (*domainDevice.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok {
		return nil, domainDevice.ErrDeviceNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *deviceRepository) GetByCode(_ context.Context, code string) (*domainDevice.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.devices {
		if d.Code == code {
			copied := *d
			return &copied, nil
		}
	}
	return nil, domainDevice.ErrDeviceNotFound
}

func (r *deviceRepository) GetByIMEI(_ context.Context, imei string) (*domainDevice.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.devices {
		if d.IMEI == imei {
			copied := *d
			return &copied, nil
		}
	}
	return nil, domainDevice.ErrDeviceNotFound
}

func (r *deviceRepository) UpdateStatus(_ context.Context, deviceID uuid.UUID, from, to domainDevice.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}
	if d.Status != from {
		return domainDevice.ErrIllegalTransition
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	return nil
}

func (r *deviceRepository) SetVerification(_ context.Context, deviceID uuid.UUID, status domainDevice.VerificationStatus, method domainDevice.VerificationMethod, verifiedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}
	d.VerificationStatus = status
	d.VerificationMethod = method
	d.VerifiedAt = &verifiedAt
	d.UpdatedAt = time.Now()
	return nil
}

func (r *deviceRepository) SetBlacklistFlag(_ context.Context, deviceID uuid.UUID, flagged bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}
	d.BlacklistFlagged = flagged
	d.UpdatedAt = time.Now()
	return nil
}

func (r *deviceRepository) ListBlacklistFlagged(_ context.Context, limit int) ([]*domainDevice.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var devices []*domainDevice.Device
	for _, d := range r.s.devices {
		if d.BlacklistFlagged {
			copied := *d
			devices = append(devices, &copied)
		}
		if limit > 0 && len(devices) >= limit {
			break
		}
	}
	return devices, nil
}

func (r *deviceRepository) List(_ context.Context, filter *domainDevice.Filter) ([]*domainDevice.Device, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var devices []*domainDevice.Device
	for _, d := range r.s.devices {
		if filter.OwnerID != nil && d.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(d.Code), search) &&
				!strings.Contains(d.IMEI, search) &&
				!strings.Contains(strings.ToLower(d.Brand), search) &&
				!strings.Contains(strings.ToLower(d.Model), search) {
				continue
			}
		}
		copied := *d
		devices = append(devices, &copied)
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].RegisteredAt.After(devices[j].RegisteredAt)
	})

	return devices, int64(len(devices)), nil
}

func (r *deviceRepository) GetStatistics(_ context.Context) (*domainDevice.Statistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &domainDevice.Statistics{}
	for _, d := range r.s.devices {
		stats.TotalDevices++
		switch d.Status {
		case domainDevice.StatusActive:
			stats.ActiveDevices++
		case domainDevice.StatusTransferred:
			stats.TransferredDevices++
		case domainDevice.StatusLost:
			stats.LostDevices++
		case domainDevice.StatusStolen:
			stats.StolenDevices++
		}
		if d.VerificationStatus == domainDevice.VerificationVerified {
			stats.VerifiedDevices++
		}
		if d.BlacklistFlagged {
			stats.FlaggedDevices++
		}
	}
	return stats, nil
}

func (r *deviceRepository) AppendHistory(_ context.Context, entry *domainDevice.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry.ID = uuid.New()
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	copied := *entry
	r.s.history = append(r.s.history, &copied)
	return nil
}

func (r *deviceRepository) HistoryForDevice(_ context.Context, deviceID uuid.UUID) ([]*domainDevice.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*domainDevice.HistoryEntry
	for _, e := range r.s.history {
		if e.DeviceID == deviceID {
			copied := *e
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].OccurredAt.Before(entries[j].OccurredAt)
	})
	return entries, nil
}

// transferRepository

type transferRepository struct {
	s *store
}

func (r *transferRepository) Create(_ context.Context, req *domainTransfer.Request, fee int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.transfers {
		if existing.DeviceID == req.DeviceID && existing.Status == domainTransfer.StatusPending {
			return domainTransfer.ErrTransferPending
		}
	}

	if fee > 0 {
		if err := r.s.debit(req.FromAccountID, fee, "transfer_fee"); err != nil {
			return err
		}
	}

	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.Status = domainTransfer.StatusPending

	copied := *req
	r.s.transfers[req.ID] = &copied
	return nil
}

func (r *transferRepository) GetByID(_ context.Context, transferID uuid.UUID) (*domainTransfer.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.transfers[transferID]
	if !ok {
		return nil, domainTransfer.ErrTransferNotFound
	}
	copied := *req
	return &copied, nil
}

func (r *transferRepository) GetPendingByDevice(_ context.Context, deviceID uuid.UUID) (*domainTransfer.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, req := range r.s.transfers {
		if req.DeviceID == deviceID && req.Status == domainTransfer.StatusPending {
			copied := *req
			return &copied, nil
		}
	}
	return nil, domainTransfer.ErrTransferNotFound
}

func (r *transferRepository) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*domainTransfer.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var requests []*domainTransfer.Request
	for _, req := range r.s.transfers {
		if req.FromAccountID == accountID || (req.ToAccountID != nil && *req.ToAccountID == accountID) {
			copied := *req
			requests = append(requests, &copied)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (r *transferRepository) Accept(_ context.Context, transferID uuid.UUID, newOwnerID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.transfers[transferID]
	if !ok {
		return domainTransfer.ErrTransferNotFound
	}
	if req.Status != domainTransfer.StatusPending {
		return domainTransfer.ErrAlreadyResolved
	}

	d, ok := r.s.devices[req.DeviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}

	req.Status = domainTransfer.StatusAccepted
	req.ToAccountID = &newOwnerID
	req.ResolvedAt = &at

	method := d.VerificationMethod

	d.OwnerID = newOwnerID
	d.Status = domainDevice.StatusTransferred
	d.VerificationStatus = domainDevice.VerificationPending
	d.VerificationMethod = domainDevice.MethodNone
	d.VerifiedAt = nil
	d.UpdatedAt = at

	r.s.history = append(r.s.history, &domainDevice.HistoryEntry{
		ID:            uuid.New(),
		DeviceID:      req.DeviceID,
		TransferID:    &req.ID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   &newOwnerID,
		Action:        domainDevice.ActionTransferAccepted,
		Method:        method,
		Reason:        req.Reason,
		OccurredAt:    at,
	})

	return nil
}

func (r *transferRepository) Reject(_ context.Context, transferID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.transfers[transferID]
	if !ok {
		return domainTransfer.ErrTransferNotFound
	}
	if req.Status != domainTransfer.StatusPending {
		return domainTransfer.ErrAlreadyResolved
	}

	req.Status = domainTransfer.StatusRejected
	req.ResolvedAt = &at

	r.s.history = append(r.s.history, &domainDevice.HistoryEntry{
		ID:            uuid.New(),
		DeviceID:      req.DeviceID,
		TransferID:    &req.ID,
		FromAccountID: req.FromAccountID,
		Action:        domainDevice.ActionTransferRejected,
		Reason:        req.Reason,
		OccurredAt:    at,
	})

	return nil
}

func (r *transferRepository) MarkExpired(_ context.Context, transferID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.transfers[transferID]
	if !ok {
		return domainTransfer.ErrTransferNotFound
	}
	if req.Status != domainTransfer.StatusPending || at.Before(req.ExpiresAt) {
		return domainTransfer.ErrAlreadyResolved
	}

	req.Status = domainTransfer.StatusExpired
	req.ResolvedAt = &at
	return nil
}

func (r *transferRepository) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var moved int64
	for _, req := range r.s.transfers {
		if req.Status == domainTransfer.StatusPending && now.After(req.ExpiresAt) {
			req.Status = domainTransfer.StatusExpired
			resolvedAt := now
			req.ResolvedAt = &resolvedAt
			moved++
		}
	}
	return moved, nil
}

// ledgerRepository

type ledgerRepository struct {
	s *store
}

func (r *ledgerRepository) GetByAccount(_ context.Context, accountID uuid.UUID) (*domainLedger.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wallet, ok := r.s.wallets[accountID]
	if !ok {
		return nil, domainLedger.ErrWalletNotFound
	}
	copied := *wallet
	return &copied, nil
}

func (r *ledgerRepository) Credit(_ context.Context, accountID uuid.UUID, amount int64, reference string) error {
	if amount <= 0 {
		return domainLedger.ErrInvalidAmount
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.credit(accountID, amount, reference)
}

func (r *ledgerRepository) Debit(_ context.Context, accountID uuid.UUID, amount int64, reference string) error {
	if amount <= 0 {
		return domainLedger.ErrInvalidAmount
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.debit(accountID, amount, reference)
}

func (r *ledgerRepository) Transactions(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*domainLedger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var transactions []*domainLedger.Transaction
	for _, tx := range r.s.ledger {
		if tx.AccountID == accountID {
			copied := *tx
			transactions = append(transactions, &copied)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(transactions) {
			return nil, nil
		}
		transactions = transactions[offset:]
	}
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}
	return transactions, nil
}
