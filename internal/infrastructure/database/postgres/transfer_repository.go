package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainDevice "storda-registry/internal/domain/device"
	domainTransfer "storda-registry/internal/domain/transfer"
	"storda-registry/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferRepository implements domain transfer.Repository.
type TransferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) domainTransfer.Repository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Create(ctx context.Context, req *domainTransfer.Request, fee int64) error {
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.Status = domainTransfer.StatusPending

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fee > 0 {
			if err := debitTx(tx, req.FromAccountID, fee, "transfer_fee:"+req.ID.String()); err != nil {
				return err
			}
		}

		if err := tx.Create(toTransferModel(req)).Error; err != nil {
			// uniq_transfers_pending_device rejects a second pending
			// request for the device; the fee debit rolls back.
			if duplicateKeyOn(err, "uniq_transfers_pending_device") {
				return domainTransfer.ErrTransferPending
			}
			return fmt.Errorf("failed to create transfer request: %w", err)
		}

		return nil
	})
}

func (r *TransferRepository) GetByID(ctx context.Context, transferID uuid.UUID) (*domainTransfer.Request, error) {
	var dbModel models.TransferModel
	err := r.db.WithContext(ctx).
		Where("id = ?", transferID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainTransfer.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer request: %w", err)
	}

	return toTransferEntity(&dbModel), nil
}

func (r *TransferRepository) GetPendingByDevice(ctx context.Context, deviceID uuid.UUID) (*domainTransfer.Request, error) {
	var dbModel models.TransferModel
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND status = ?", deviceID, string(domainTransfer.StatusPending)).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainTransfer.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending transfer: %w", err)
	}

	return toTransferEntity(&dbModel), nil
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domainTransfer.Request, error) {
	var dbModels []models.TransferModel
	err := r.db.WithContext(ctx).
		Where("from_account_id = ? OR to_account_id = ?", accountID, accountID).
		Order("created_at DESC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	requests := make([]*domainTransfer.Request, len(dbModels))
	for i, dbModel := range dbModels {
		requests[i] = toTransferEntity(&dbModel)
	}

	return requests, nil
}

func (r *TransferRepository) Accept(ctx context.Context, transferID uuid.UUID, newOwnerID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// First terminal transition wins; a concurrent reject or expiry
		// sweep that committed before us makes this a no-op.
		result := tx.Model(&models.TransferModel{}).
			Where("id = ? AND status = ?", transferID, string(domainTransfer.StatusPending)).
			Updates(map[string]interface{}{
				"status":        string(domainTransfer.StatusAccepted),
				"to_account_id": newOwnerID,
				"resolved_at":   at,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to accept transfer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainTransfer.ErrAlreadyResolved
		}

		var req models.TransferModel
		if err := tx.Where("id = ?", transferID).First(&req).Error; err != nil {
			return fmt.Errorf("failed to read transfer: %w", err)
		}

		var dev models.DeviceModel
		if err := tx.Where("id = ?", req.DeviceID).First(&dev).Error; err != nil {
			return fmt.Errorf("failed to read device: %w", err)
		}

		// Ownership flips and verification resets; the new owner must
		// re-prove purchase before transferring again.
		if err := tx.Model(&models.DeviceModel{}).
			Where("id = ?", req.DeviceID).
			Updates(map[string]interface{}{
				"owner_id":            newOwnerID,
				"status":              string(domainDevice.StatusTransferred),
				"verification_status": string(domainDevice.VerificationPending),
				"verification_method": string(domainDevice.MethodNone),
				"verified_at":         nil,
				"updated_at":          at,
			}).Error; err != nil {
			return fmt.Errorf("failed to flip device ownership: %w", err)
		}

		history := &models.DeviceHistoryModel{
			ID:            uuid.New(),
			DeviceID:      req.DeviceID,
			TransferID:    &req.ID,
			FromAccountID: req.FromAccountID,
			ToAccountID:   &newOwnerID,
			Action:        string(domainDevice.ActionTransferAccepted),
			Method:        dev.VerificationMethod,
			Reason:        req.Reason,
			OccurredAt:    at,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to append transfer history: %w", err)
		}

		return nil
	})
}

func (r *TransferRepository) Reject(ctx context.Context, transferID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TransferModel{}).
			Where("id = ? AND status = ?", transferID, string(domainTransfer.StatusPending)).
			Updates(map[string]interface{}{
				"status":      string(domainTransfer.StatusRejected),
				"resolved_at": at,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to reject transfer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainTransfer.ErrAlreadyResolved
		}

		var req models.TransferModel
		if err := tx.Where("id = ?", transferID).First(&req).Error; err != nil {
			return fmt.Errorf("failed to read transfer: %w", err)
		}

		history := &models.DeviceHistoryModel{
			ID:            uuid.New(),
			DeviceID:      req.DeviceID,
			TransferID:    &req.ID,
			FromAccountID: req.FromAccountID,
			Action:        string(domainDevice.ActionTransferRejected),
			Reason:        req.Reason,
			OccurredAt:    at,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to append rejection history: %w", err)
		}

		return nil
	})
}

func (r *TransferRepository) MarkExpired(ctx context.Context, transferID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.TransferModel{}).
		Where("id = ? AND status = ? AND expires_at < ?", transferID, string(domainTransfer.StatusPending), at).
		Updates(map[string]interface{}{
			"status":      string(domainTransfer.StatusExpired),
			"resolved_at": at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to expire transfer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainTransfer.ErrAlreadyResolved
	}

	return nil
}

func (r *TransferRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TransferModel{}).
		Where("status = ? AND expires_at < ?", string(domainTransfer.StatusPending), now).
		Updates(map[string]interface{}{
			"status":      string(domainTransfer.StatusExpired),
			"resolved_at": now,
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire overdue transfers: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func toTransferModel(r *domainTransfer.Request) *models.TransferModel {
	return &models.TransferModel{
		ID:               r.ID,
		DeviceID:         r.DeviceID,
		FromAccountID:    r.FromAccountID,
		ToAccountID:      r.ToAccountID,
		RecipientContact: r.RecipientContact,
		ContactChannel:   string(r.ContactChannel),
		RecipientName:    r.RecipientName,
		RequireID:        r.RequireID,
		RecipientNIN:     r.RecipientNIN,
		Reason:           r.Reason,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
		ExpiresAt:        r.ExpiresAt,
		ResolvedAt:       r.ResolvedAt,
	}
}

func toTransferEntity(m *models.TransferModel) *domainTransfer.Request {
	return &domainTransfer.Request{
		ID:               m.ID,
		DeviceID:         m.DeviceID,
		FromAccountID:    m.FromAccountID,
		ToAccountID:      m.ToAccountID,
		RecipientContact: m.RecipientContact,
		ContactChannel:   domainTransfer.Channel(m.ContactChannel),
		RecipientName:    m.RecipientName,
		RequireID:        m.RequireID,
		RecipientNIN:     m.RecipientNIN,
		Reason:           m.Reason,
		Status:           domainTransfer.Status(m.Status),
		CreatedAt:        m.CreatedAt,
		ExpiresAt:        m.ExpiresAt,
		ResolvedAt:       m.ResolvedAt,
	}
}
