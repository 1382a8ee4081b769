// Package verification implements ownership verification of registered
// devices and the periodic re-check of devices whose blacklist lookup failed
// at registration time.
package verification

import (
	"context"
	"time"

	"storda-registry/internal/blacklist"
	"storda-registry/internal/domain/device"
	"storda-registry/internal/events"
	"storda-registry/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VerifyRequest struct {
	Method     string `json:"method" binding:"required,oneof=receipt photo both"`
	ReceiptURL string `json:"receipt_url" binding:"omitempty,url,max=500"`
	PhotoURL   string `json:"photo_url" binding:"omitempty,url,max=500"`
}

type Service struct {
	devices   device.Repository
	checker   blacklist.Checker
	publisher events.Publisher
}

func NewService(devices device.Repository, checker blacklist.Checker, publisher events.Publisher) *Service {
	return &Service{
		devices:   devices,
		checker:   checker,
		publisher: publisher,
	}
}

// Verify records an ownership verification for the caller's device. Evidence
// review is synchronous for now, so a submitted claim goes straight to
// verified; the method is kept on the record and in the history.
func (s *Service) Verify(ctx context.Context, ownerID, deviceID uuid.UUID, req *VerifyRequest) error {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if d.OwnerID != ownerID {
		return device.ErrNotOwner
	}
	if d.VerificationStatus == device.VerificationVerified {
		return device.ErrAlreadyVerified
	}

	method := device.VerificationMethod(req.Method)
	now := time.Now()
	if err := s.devices.SetVerification(ctx, deviceID, device.VerificationVerified, method, now); err != nil {
		return err
	}

	if err := s.devices.AppendHistory(ctx, &device.HistoryEntry{
		DeviceID:      deviceID,
		FromAccountID: ownerID,
		Action:        device.ActionVerified,
		Method:        method,
		OccurredAt:    now,
	}); err != nil {
		logger.Error("failed to append verification history",
			zap.String("device_code", d.Code),
			zap.Error(err),
		)
	}

	s.publisher.Publish(events.TypeDeviceVerified, d.Code, map[string]interface{}{
		"device_id": deviceID.String(),
		"method":    req.Method,
	})

	return nil
}

// CheckBlacklist re-runs the registry lookup for one device and clears or
// confirms its flag. A lookup failure leaves the flag untouched for the next
// sweep.
func (s *Service) CheckBlacklist(ctx context.Context, deviceID uuid.UUID) (*blacklist.Result, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	result, err := s.checker.Check(ctx, d.IMEI)
	if err != nil {
		return nil, err
	}

	if result.Blacklisted != d.BlacklistFlagged {
		if err := s.devices.SetBlacklistFlag(ctx, deviceID, result.Blacklisted); err != nil {
			return nil, err
		}
	}

	if result.Blacklisted {
		s.publisher.Publish(events.TypeDeviceFlagHit, d.Code, map[string]interface{}{
			"device_id": deviceID.String(),
			"reason":    result.Reason,
		})
	}

	return result, nil
}

// StartRecheckJob periodically re-checks flagged devices against the
// registry until the context is cancelled. Sweeps that fail are logged and
// retried on the next tick.
func (s *Service) StartRecheckJob(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("blacklist re-check job started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("blacklist re-check job stopped")
			return
		case <-ticker.C:
			s.recheckFlagged(ctx, batchSize)
		}
	}
}

func (s *Service) recheckFlagged(ctx context.Context, batchSize int) {
	flagged, err := s.devices.ListBlacklistFlagged(ctx, batchSize)
	if err != nil {
		logger.Error("failed to list flagged devices", zap.Error(err))
		return
	}

	for _, d := range flagged {
		result, err := s.checker.Check(ctx, d.IMEI)
		if err != nil {
			logger.Warn("blacklist re-check failed",
				zap.String("device_code", d.Code),
				zap.Error(err),
			)
			continue
		}
		if !result.Blacklisted {
			if err := s.devices.SetBlacklistFlag(ctx, d.ID, false); err != nil {
				logger.Error("failed to clear blacklist flag",
					zap.String("device_code", d.Code),
					zap.Error(err),
				)
			}
			continue
		}
		s.publisher.Publish(events.TypeDeviceFlagHit, d.Code, map[string]interface{}{
			"device_id": d.ID.String(),
			"reason":    result.Reason,
		})
	}
}
