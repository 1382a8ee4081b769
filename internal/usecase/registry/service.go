// Package registry implements device registration, lookup and lifecycle
// transitions. Registration is paid; lost/stolen reports and recoveries are
// owner-only and recorded in the device history.
package registry

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storda-registry/internal/blacklist"
	"storda-registry/internal/config"
	"storda-registry/internal/device/lifecycle"
	"storda-registry/internal/domain/device"
	"storda-registry/internal/events"
	"storda-registry/internal/logger"
	"storda-registry/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type Service struct {
	devices   device.Repository
	checker   blacklist.Checker
	publisher events.Publisher
	cfg       *config.Config
}

func NewService(devices device.Repository, checker blacklist.Checker, publisher events.Publisher, cfg *config.Config) *Service {
	return &Service{
		devices:   devices,
		checker:   checker,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Register records a new device under the caller's ownership. The owner pays
// the registration fee; if the insert fails for any reason the fee is rolled
// back with it. A blacklist hit rejects the registration outright, while a
// registry lookup failure degrades to a flagged, unverified device.
func (s *Service) Register(ctx context.Context, ownerID uuid.UUID, req *RegisterDeviceRequest) (*DeviceResponse, error) {
	imei := utils.SanitizeDigits(req.IMEI)
	if err := validateIMEI(imei); err != nil {
		return nil, err
	}

	flagged := false
	result, err := s.checker.Check(ctx, imei)
	switch {
	case err != nil:
		logger.Warn("blacklist check failed, flagging device for re-check",
			zap.String("imei", imei),
			zap.Error(err),
		)
		flagged = true
	case result.Blacklisted:
		return nil, device.ErrBlacklisted
	}

	verificationStatus, method := initialVerification(req, flagged)

	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}

	d := &device.Device{
		Code:               code,
		IMEI:               imei,
		Brand:              utils.SanitizeString(req.Brand),
		Model:              utils.SanitizeString(req.Model),
		OwnerID:            ownerID,
		Status:             device.StatusActive,
		VerificationStatus: verificationStatus,
		VerificationMethod: method,
		BlacklistFlagged:   flagged,
	}
	if req.MACAddress != "" {
		mac := utils.SanitizeString(req.MACAddress)
		d.MACAddress = &mac
	}
	if req.Storage != "" {
		storage := utils.SanitizeString(req.Storage)
		d.Storage = &storage
	}
	if req.Color != "" {
		color := utils.SanitizeString(req.Color)
		d.Color = &color
	}

	if err := s.devices.Create(ctx, d, s.cfg.Fees.Registration); err != nil {
		return nil, err
	}

	logger.Info("device registered",
		zap.String("device_code", d.Code),
		zap.String("owner_id", ownerID.String()),
		zap.Bool("flagged", flagged),
	)

	s.publisher.Publish(events.TypeDeviceRegistered, d.Code, map[string]interface{}{
		"device_id": d.ID.String(),
		"brand":     d.Brand,
		"model":     d.Model,
	})

	return toDeviceResponse(d), nil
}

func (s *Service) Get(ctx context.Context, accountID, deviceID uuid.UUID) (*DeviceResponse, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != accountID {
		return nil, device.ErrNotOwner
	}
	return toDeviceResponse(d), nil
}

// GetByCode resolves an owned device by its human-facing code.
func (s *Service) GetByCode(ctx context.Context, accountID uuid.UUID, code string) (*DeviceResponse, error) {
	d, err := s.devices.GetByCode(ctx, strings.ToUpper(utils.SanitizeString(code)))
	if err != nil {
		return nil, err
	}
	if d.OwnerID != accountID {
		return nil, device.ErrNotOwner
	}
	return toDeviceResponse(d), nil
}

// Lookup resolves a device by IMEI for anyone, returning only its public
// standing. This is the pre-purchase check.
func (s *Service) Lookup(ctx context.Context, imei string) (*LookupResponse, error) {
	imei = utils.SanitizeDigits(imei)
	if err := validateIMEI(imei); err != nil {
		return nil, err
	}
	d, err := s.devices.GetByIMEI(ctx, imei)
	if err != nil {
		return nil, err
	}
	return toLookupResponse(d), nil
}

// Report marks an owned device lost or stolen. The device is frozen until
// the owner recovers it; pending transfers are not cancelled here but can no
// longer be accepted against a non-active device.
func (s *Service) Report(ctx context.Context, ownerID, deviceID uuid.UUID, req *ReportRequest) (*DeviceResponse, error) {
	target, ok := lifecycle.ReportTarget(req.Kind)
	if !ok {
		return nil, device.ErrIllegalTransition
	}

	d, err := s.ownedDevice(ctx, ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, d, target); err != nil {
		return nil, err
	}

	action := device.ActionReportedLost
	eventKind := "lost"
	if target == device.StatusStolen {
		action = device.ActionReportedStolen
		eventKind = "stolen"
	}
	s.record(ctx, d, action, utils.SanitizeString(req.Reason))

	s.publisher.Publish(events.TypeDeviceReported, d.Code, map[string]interface{}{
		"device_id": d.ID.String(),
		"kind":      eventKind,
	})

	d.Status = target
	return toDeviceResponse(d), nil
}

// Recover returns a lost or stolen device to active after the owner confirms
// they have it back.
func (s *Service) Recover(ctx context.Context, ownerID, deviceID uuid.UUID) (*DeviceResponse, error) {
	d, err := s.ownedDevice(ctx, ownerID, deviceID)
	if err != nil {
		return nil, err
	}
	if d.Status != device.StatusLost && d.Status != device.StatusStolen {
		return nil, device.ErrIllegalTransition
	}

	if err := s.transition(ctx, d, device.StatusActive); err != nil {
		return nil, err
	}
	s.record(ctx, d, device.ActionRecovered, "")

	s.publisher.Publish(events.TypeDeviceRecovered, d.Code, map[string]interface{}{
		"device_id": d.ID.String(),
	})

	d.Status = device.StatusActive
	return toDeviceResponse(d), nil
}

// Activate moves a freshly transferred device to active under its new owner.
func (s *Service) Activate(ctx context.Context, ownerID, deviceID uuid.UUID) (*DeviceResponse, error) {
	d, err := s.ownedDevice(ctx, ownerID, deviceID)
	if err != nil {
		return nil, err
	}
	if d.Status != device.StatusTransferred {
		return nil, device.ErrIllegalTransition
	}

	if err := s.transition(ctx, d, device.StatusActive); err != nil {
		return nil, err
	}

	d.Status = device.StatusActive
	return toDeviceResponse(d), nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, req *ListRequest) ([]*DeviceResponse, int64, error) {
	filter := &device.Filter{
		OwnerID:  &ownerID,
		Search:   utils.SanitizeString(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != "" {
		status := device.Status(req.Status)
		filter.Status = &status
	}

	devices, total, err := s.devices.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}
	return out, total, nil
}

func (s *Service) Statistics(ctx context.Context) (*device.Statistics, error) {
	return s.devices.GetStatistics(ctx)
}

func (s *Service) History(ctx context.Context, accountID, deviceID uuid.UUID) ([]*HistoryResponse, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != accountID {
		return nil, device.ErrNotOwner
	}

	entries, err := s.devices.HistoryForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return toHistoryResponse(entries), nil
}

func (s *Service) ownedDevice(ctx context.Context, ownerID, deviceID uuid.UUID) (*device.Device, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, device.ErrNotOwner
	}
	return d, nil
}

// transition validates the move against the state machine, then applies it
// with a guarded update so a concurrent writer cannot also win.
func (s *Service) transition(ctx context.Context, d *device.Device, to device.Status) error {
	if err := lifecycle.ValidateStatusTransition(d.Status, to); err != nil {
		return err
	}
	return s.devices.UpdateStatus(ctx, d.ID, d.Status, to)
}

func (s *Service) record(ctx context.Context, d *device.Device, action device.HistoryAction, reason string) {
	err := s.devices.AppendHistory(ctx, &device.HistoryEntry{
		DeviceID:      d.ID,
		FromAccountID: d.OwnerID,
		Action:        action,
		Method:        device.MethodNone,
		Reason:        reason,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		logger.Error("failed to append device history",
			zap.String("device_code", d.Code),
			zap.Error(err),
		)
	}
}

func (s *Service) generateCode() (string, error) {
	b := make([]byte, 6)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate device code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("STD-%s", string(b)), nil
}

// initialVerification maps registration evidence to the starting
// verification state. Every clean registration opens a pending claim, with
// the method recording which evidence came in up front. A failed blacklist
// lookup degrades the device to unverified until the re-check clears it.
func initialVerification(req *RegisterDeviceRequest, flagged bool) (device.VerificationStatus, device.VerificationMethod) {
	if flagged {
		return device.VerificationUnverified, device.MethodNone
	}
	switch {
	case req.ReceiptURL != "" && req.PhotoURL != "":
		return device.VerificationPending, device.MethodBoth
	case req.ReceiptURL != "":
		return device.VerificationPending, device.MethodReceipt
	case req.PhotoURL != "":
		return device.VerificationPending, device.MethodPhoto
	}
	return device.VerificationPending, device.MethodNone
}

func validateIMEI(imei string) error {
	if len(imei) != 15 {
		return device.ErrInvalidIMEI
	}
	return nil
}
