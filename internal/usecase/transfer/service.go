// Package transfer implements the ownership handoff workflow: a paid,
// PIN-gated initiation, an OTP-gated acceptance with a hard deadline, and
// the background sweep that expires overdue requests.
package transfer

import (
	"context"
	"errors"
	"regexp"
	"time"

	"storda-registry/internal/config"
	domainAccount "storda-registry/internal/domain/account"
	"storda-registry/internal/domain/device"
	domain "storda-registry/internal/domain/transfer"
	"storda-registry/internal/events"
	"storda-registry/internal/logger"
	appErrors "storda-registry/pkg/errors"
	"storda-registry/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	contactValidator = validator.New()
	// Matches SanitizePhone output: digits with an optional leading plus.
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// PinVerifier checks the initiator's transaction PIN under the shared
// lockout gate.
type PinVerifier interface {
	VerifyPin(ctx context.Context, accountID uuid.UUID, pin string) error
}

// CodeStore issues and verifies the one-time confirmation code tied to a
// transfer. Verification consumes the code.
type CodeStore interface {
	Issue(ctx context.Context, transferID uuid.UUID, ttl time.Duration) (string, error)
	Verify(ctx context.Context, transferID uuid.UUID, code string) (bool, error)
}

// Notifier delivers the confirmation code to the recipient over their
// contact channel.
type Notifier interface {
	SendCode(ctx context.Context, channel domain.Channel, contact, code string) error
}

// LogNotifier logs deliveries instead of sending them. Used in development
// and until an SMS/email gateway is wired up.
type LogNotifier struct{}

func (LogNotifier) SendCode(_ context.Context, channel domain.Channel, contact, _ string) error {
	logger.Info("transfer confirmation code issued",
		zap.String("channel", string(channel)),
		zap.String("contact", contact),
	)
	return nil
}

type Service struct {
	transfers domain.Repository
	devices   device.Repository
	accounts  domainAccount.Repository
	pins      PinVerifier
	codes     CodeStore
	notifier  Notifier
	publisher events.Publisher
	cfg       *config.Config
}

func NewService(
	transfers domain.Repository,
	devices device.Repository,
	accounts domainAccount.Repository,
	pins PinVerifier,
	codes CodeStore,
	notifier Notifier,
	publisher events.Publisher,
	cfg *config.Config,
) *Service {
	return &Service{
		transfers: transfers,
		devices:   devices,
		accounts:  accounts,
		pins:      pins,
		codes:     codes,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Initiate opens a transfer for an owned, active, verified device. The
// preconditions are checked in a fixed order so a caller failing several of
// them always sees the same first error. The fee is debited together with
// the insert; a rejected insert costs nothing.
func (s *Service) Initiate(ctx context.Context, accountID uuid.UUID, req *InitiateRequest) (*TransferResponse, error) {
	d, err := s.devices.GetByID(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != accountID {
		return nil, device.ErrNotOwner
	}
	if d.Status != device.StatusActive {
		return nil, device.ErrUnavailable
	}
	if d.VerificationStatus != device.VerificationVerified {
		return nil, device.ErrNotVerified
	}

	contact := utils.SanitizeString(req.RecipientContact)
	if req.ContactChannel == string(domain.ChannelEmail) {
		contact = utils.SanitizeEmail(contact)
		if contactValidator.Var(contact, "email") != nil {
			return nil, appErrors.NewAppError(
				"INVALID_CONTACT",
				"Recipient contact must be a valid email address",
				appErrors.ErrInvalidInput,
			)
		}
	} else {
		contact = utils.SanitizePhone(contact)
		if !phonePattern.MatchString(contact) {
			return nil, appErrors.NewAppError(
				"INVALID_CONTACT",
				"Recipient contact must be a valid phone number",
				appErrors.ErrInvalidInput,
			)
		}
	}

	// The recipient does not need an account yet, but when the contact
	// already resolves to the initiator the transfer is pointless.
	if recipient, err := s.accounts.GetByContact(ctx, contact); err == nil && recipient.ID == accountID {
		return nil, domain.ErrSelfTransfer
	}

	var nin *string
	if req.RequireID {
		digits := utils.SanitizeDigits(req.RecipientNIN)
		if len(digits) != 11 {
			return nil, appErrors.NewAppError(
				"INVALID_NIN",
				"Recipient NIN must be exactly 11 digits",
				appErrors.ErrInvalidInput,
			)
		}
		nin = &digits
	}

	if err := s.pins.VerifyPin(ctx, accountID, req.Pin); err != nil {
		return nil, err
	}

	now := time.Now()
	request := &domain.Request{
		DeviceID:         d.ID,
		FromAccountID:    accountID,
		RecipientContact: contact,
		ContactChannel:   domain.Channel(req.ContactChannel),
		RecipientName:    utils.SanitizeString(req.RecipientName),
		RequireID:        req.RequireID,
		RecipientNIN:     nin,
		Reason:           utils.SanitizeString(req.Reason),
		ExpiresAt:        now.Add(s.cfg.Transfer.Expiry),
	}

	if err := s.transfers.Create(ctx, request, s.cfg.Fees.Transfer); err != nil {
		return nil, err
	}

	code, err := s.codes.Issue(ctx, request.ID, s.cfg.Transfer.Expiry)
	if err != nil {
		// The request stands; the initiator can ask for a re-send.
		logger.Error("failed to issue confirmation code",
			zap.String("transfer_id", request.ID.String()),
			zap.Error(err),
		)
	} else if err := s.notifier.SendCode(ctx, request.ContactChannel, contact, code); err != nil {
		logger.Error("failed to deliver confirmation code",
			zap.String("transfer_id", request.ID.String()),
			zap.Error(err),
		)
	}

	logger.Info("transfer initiated",
		zap.String("transfer_id", request.ID.String()),
		zap.String("device_code", d.Code),
	)

	s.publisher.Publish(events.TypeTransferInitiated, d.Code, map[string]interface{}{
		"transfer_id": request.ID.String(),
		"expires_at":  request.ExpiresAt,
	})

	return toTransferResponse(request), nil
}

// ResendCode issues a fresh confirmation code for a still-pending transfer.
func (s *Service) ResendCode(ctx context.Context, accountID, transferID uuid.UUID) error {
	request, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return err
	}
	if request.FromAccountID != accountID {
		return appErrors.ErrUnauthorized
	}
	if request.Resolved() {
		return domain.ErrAlreadyResolved
	}
	if request.Overdue(time.Now()) {
		return domain.ErrTransferExpired
	}

	code, err := s.codes.Issue(ctx, transferID, time.Until(request.ExpiresAt))
	if err != nil {
		return err
	}
	return s.notifier.SendCode(ctx, request.ContactChannel, request.RecipientContact, code)
}

// Accept completes the handoff. The caller must match the recipient contact
// and present the confirmation code. Accepting an already-accepted transfer
// again is a no-op returning the settled state, so a retried request cannot
// double-apply.
func (s *Service) Accept(ctx context.Context, accountID, transferID uuid.UUID, req *AcceptRequest) (*TransferResponse, error) {
	request, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	switch request.Status {
	case domain.StatusAccepted:
		if request.ToAccountID != nil && *request.ToAccountID == accountID {
			return toTransferResponse(request), nil
		}
		return nil, domain.ErrAlreadyResolved
	case domain.StatusRejected:
		return nil, domain.ErrAlreadyResolved
	case domain.StatusExpired:
		return nil, domain.ErrTransferExpired
	}

	now := time.Now()
	if request.Overdue(now) {
		s.lazyExpire(ctx, request, now)
		return nil, domain.ErrTransferExpired
	}

	acceptor, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acceptor.Email != request.RecipientContact && acceptor.PhoneNumber != request.RecipientContact {
		return nil, appErrors.ErrUnauthorized
	}

	ok, err := s.codes.Verify(ctx, transferID, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.ErrOTPMismatch
	}

	// A device reported lost or stolen after initiation can no longer be
	// handed over.
	d, err := s.devices.GetByID(ctx, request.DeviceID)
	if err != nil {
		return nil, err
	}
	if d.Status != device.StatusActive {
		return nil, device.ErrUnavailable
	}

	if err := s.transfers.Accept(ctx, transferID, accountID, now); err != nil {
		// A concurrent accept, reject or expiry got there first; report
		// the settled state honestly.
		if errors.Is(err, domain.ErrAlreadyResolved) {
			if settled, getErr := s.transfers.GetByID(ctx, transferID); getErr == nil {
				if settled.Status == domain.StatusAccepted && settled.ToAccountID != nil && *settled.ToAccountID == accountID {
					return toTransferResponse(settled), nil
				}
				if settled.Status == domain.StatusExpired {
					return nil, domain.ErrTransferExpired
				}
			}
		}
		return nil, err
	}

	logger.Info("transfer accepted",
		zap.String("transfer_id", transferID.String()),
		zap.String("device_code", d.Code),
	)

	s.publisher.Publish(events.TypeTransferAccepted, d.Code, map[string]interface{}{
		"transfer_id": transferID.String(),
	})

	request, err = s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	return toTransferResponse(request), nil
}

// Reject declines a pending transfer. Only the intended recipient can
// reject; the initiation fee is not refunded.
func (s *Service) Reject(ctx context.Context, accountID, transferID uuid.UUID) (*TransferResponse, error) {
	request, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if request.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}

	now := time.Now()
	if request.Overdue(now) {
		s.lazyExpire(ctx, request, now)
		return nil, domain.ErrTransferExpired
	}

	acceptor, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acceptor.Email != request.RecipientContact && acceptor.PhoneNumber != request.RecipientContact {
		return nil, appErrors.ErrUnauthorized
	}

	if err := s.transfers.Reject(ctx, transferID, now); err != nil {
		return nil, err
	}

	if d, err := s.devices.GetByID(ctx, request.DeviceID); err == nil {
		s.publisher.Publish(events.TypeTransferRejected, d.Code, map[string]interface{}{
			"transfer_id": transferID.String(),
		})
	}

	request, err = s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	return toTransferResponse(request), nil
}

// Get returns a transfer visible to its initiator or recipient. An overdue
// pending request is expired on read, so clients never see a live request
// past its deadline.
func (s *Service) Get(ctx context.Context, accountID, transferID uuid.UUID) (*TransferResponse, error) {
	request, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if !s.visibleTo(ctx, request, accountID) {
		return nil, appErrors.ErrUnauthorized
	}

	now := time.Now()
	if request.Overdue(now) {
		s.lazyExpire(ctx, request, now)
		request, err = s.transfers.GetByID(ctx, transferID)
		if err != nil {
			return nil, err
		}
	}
	return toTransferResponse(request), nil
}

func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*TransferResponse, error) {
	requests, err := s.transfers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]*TransferResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toTransferResponse(r))
	}
	return out, nil
}

// StartExpirySweep expires overdue pending transfers on a fixed interval
// until the context is cancelled. The sweep is idempotent, so overlapping
// with lazy expiry on reads is harmless.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("transfer expiry sweep started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("transfer expiry sweep stopped")
			return
		case <-ticker.C:
			moved, err := s.transfers.ExpireOverdue(ctx, time.Now())
			if err != nil {
				logger.Error("transfer expiry sweep failed", zap.Error(err))
				continue
			}
			if moved > 0 {
				logger.Info("expired overdue transfers", zap.Int64("count", moved))
			}
		}
	}
}

func (s *Service) visibleTo(ctx context.Context, request *domain.Request, accountID uuid.UUID) bool {
	if request.FromAccountID == accountID {
		return true
	}
	if request.ToAccountID != nil && *request.ToAccountID == accountID {
		return true
	}
	if account, err := s.accounts.GetByID(ctx, accountID); err == nil {
		return account.Email == request.RecipientContact || account.PhoneNumber == request.RecipientContact
	}
	return false
}

func (s *Service) lazyExpire(ctx context.Context, request *domain.Request, now time.Time) {
	if err := s.transfers.MarkExpired(ctx, request.ID, now); err != nil {
		if !errors.Is(err, domain.ErrAlreadyResolved) {
			logger.Error("failed to expire overdue transfer",
				zap.String("transfer_id", request.ID.String()),
				zap.Error(err),
			)
		}
		return
	}

	if d, err := s.devices.GetByID(ctx, request.DeviceID); err == nil {
		s.publisher.Publish(events.TypeTransferExpired, d.Code, map[string]interface{}{
			"transfer_id": request.ID.String(),
		})
	}
}
