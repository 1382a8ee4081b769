package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainDevice "storda-registry/internal/domain/device"
	"storda-registry/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceRepository implements domain device.Repository.
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) domainDevice.Repository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domainDevice.Device, fee int64) error {
	d.ID = uuid.New()
	d.RegisteredAt = time.Now()
	d.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if fee > 0 {
			if err := debitTx(tx, d.OwnerID, fee, "device_registration:"+d.Code); err != nil {
				return err
			}
		}

		dbModel := toDeviceModel(d)
		if err := tx.Create(dbModel).Error; err != nil {
			// The IMEI unique index rejects a second record with the same
			// IMEI; the fee debit above rolls back with the insert. Code is
			// unique too, so the match is on the constraint name.
			if duplicateKeyOn(err, "idx_devices_imei") {
				return domainDevice.ErrDuplicateIMEI
			}
			return fmt.Errorf("failed to create device: %w", err)
		}

		history := &models.DeviceHistoryModel{
			ID:            uuid.New(),
			DeviceID:      d.ID,
			FromAccountID: d.OwnerID,
			Action:        string(domainDevice.ActionRegistered),
			Method:        string(d.VerificationMethod),
			OccurredAt:    d.RegisteredAt,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to append registration history: %w", err)
		}

		return nil
	})
}

// duplicateKeyOn reports whether err is a postgres unique violation on the
// named constraint.
func duplicateKeyOn(err error, constraint string) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") && strings.Contains(msg, constraint)
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID uuid.UUID) (*domainDevice.Device, error) {
	return r.getOne(ctx, "id = ?", deviceID)
}

func (r *DeviceRepository) GetByCode(ctx context.Context, code string) (*domainDevice.Device, error) {
	return r.getOne(ctx, "code = ?", code)
}

func (r *DeviceRepository) GetByIMEI(ctx context.Context, imei string) (*domainDevice.Device, error) {
	return r.getOne(ctx, "imei = ?", imei)
}

func (r *DeviceRepository) getOne(ctx context.Context, query string, arg interface{}) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, deviceID uuid.UUID, from, to domainDevice.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ? AND status = ?", deviceID, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the device vanished or another writer changed the
		// status first.
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.DeviceModel{}).
			Where("id = ?", deviceID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check device: %w", err)
		}
		if count == 0 {
			return domainDevice.ErrDeviceNotFound
		}
		return domainDevice.ErrIllegalTransition
	}

	return nil
}

func (r *DeviceRepository) SetVerification(ctx context.Context, deviceID uuid.UUID, status domainDevice.VerificationStatus, method domainDevice.VerificationMethod, verifiedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(map[string]interface{}{
			"verification_status": string(status),
			"verification_method": string(method),
			"verified_at":         verifiedAt,
			"updated_at":          time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to set verification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) SetBlacklistFlag(ctx context.Context, deviceID uuid.UUID, flagged bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(map[string]interface{}{
			"blacklist_flagged": flagged,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to set blacklist flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) ListBlacklistFlagged(ctx context.Context, limit int) ([]*domainDevice.Device, error) {
	if limit <= 0 {
		limit = 100
	}

	var dbModels []models.DeviceModel
	err := r.db.WithContext(ctx).
		Where("blacklist_flagged = ?", true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged devices: %w", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i, dbModel := range dbModels {
		devices[i] = toDeviceEntity(&dbModel)
	}

	return devices, nil
}

func (r *DeviceRepository) List(ctx context.Context, filter *domainDevice.Filter) ([]*domainDevice.Device, int64, error) {
	var dbModels []models.DeviceModel
	var total int64

	db := r.db.WithContext(ctx).Model(&models.DeviceModel{})

	if filter.OwnerID != nil {
		db = db.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", string(*filter.Status))
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		db = db.Where("code ILIKE ? OR imei ILIKE ? OR brand ILIKE ? OR model ILIKE ?", search, search, search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	sortBy := "registered_at"
	switch filter.SortBy {
	case "updated_at", "brand", "model", "status":
		sortBy = filter.SortBy
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	err := db.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Limit(pageSize).
		Offset(offset).
		Find(&dbModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i, dbModel := range dbModels {
		devices[i] = toDeviceEntity(&dbModel)
	}

	return devices, total, nil
}

func (r *DeviceRepository) GetStatistics(ctx context.Context) (*domainDevice.Statistics, error) {
	stats := &domainDevice.Statistics{}
	err := r.db.WithContext(ctx).Raw(`
        SELECT
            COUNT(*) as total_devices,
            COUNT(*) FILTER (WHERE status = 'active') as active_devices,
            COUNT(*) FILTER (WHERE status = 'transferred') as transferred_devices,
            COUNT(*) FILTER (WHERE status = 'lost') as lost_devices,
            COUNT(*) FILTER (WHERE status = 'stolen') as stolen_devices,
            COUNT(*) FILTER (WHERE verification_status = 'verified') as verified_devices,
            COUNT(*) FILTER (WHERE blacklist_flagged) as flagged_devices
        FROM devices
    `).Scan(stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return stats, nil
}

func (r *DeviceRepository) AppendHistory(ctx context.Context, entry *domainDevice.HistoryEntry) error {
	entry.ID = uuid.New()
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(toHistoryModel(entry)).Error; err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

func (r *DeviceRepository) HistoryForDevice(ctx context.Context, deviceID uuid.UUID) ([]*domainDevice.HistoryEntry, error) {
	var dbModels []models.DeviceHistoryModel
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("occurred_at ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get device history: %w", err)
	}

	entries := make([]*domainDevice.HistoryEntry, len(dbModels))
	for i, dbModel := range dbModels {
		entries[i] = toHistoryEntity(&dbModel)
	}

	return entries, nil
}

// Helper functions to convert between domain entities and database models

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	return &models.DeviceModel{
		ID:                 d.ID,
		Code:               d.Code,
		IMEI:               d.IMEI,
		MACAddress:         d.MACAddress,
		Brand:              d.Brand,
		Model:              d.Model,
		Storage:            d.Storage,
		Color:              d.Color,
		OwnerID:            d.OwnerID,
		Status:             string(d.Status),
		VerificationStatus: string(d.VerificationStatus),
		VerificationMethod: string(d.VerificationMethod),
		BlacklistFlagged:   d.BlacklistFlagged,
		VerifiedAt:         d.VerifiedAt,
		RegisteredAt:       d.RegisteredAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	return &domainDevice.Device{
		ID:                 m.ID,
		Code:               m.Code,
		IMEI:               m.IMEI,
		MACAddress:         m.MACAddress,
		Brand:              m.Brand,
		Model:              m.Model,
		Storage:            m.Storage,
		Color:              m.Color,
		OwnerID:            m.OwnerID,
		Status:             domainDevice.Status(m.Status),
		VerificationStatus: domainDevice.VerificationStatus(m.VerificationStatus),
		VerificationMethod: domainDevice.VerificationMethod(m.VerificationMethod),
		BlacklistFlagged:   m.BlacklistFlagged,
		VerifiedAt:         m.VerifiedAt,
		RegisteredAt:       m.RegisteredAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toHistoryModel(e *domainDevice.HistoryEntry) *models.DeviceHistoryModel {
	return &models.DeviceHistoryModel{
		ID:            e.ID,
		DeviceID:      e.DeviceID,
		TransferID:    e.TransferID,
		FromAccountID: e.FromAccountID,
		ToAccountID:   e.ToAccountID,
		Action:        string(e.Action),
		Method:        string(e.Method),
		Reason:        e.Reason,
		OccurredAt:    e.OccurredAt,
	}
}

func toHistoryEntity(m *models.DeviceHistoryModel) *domainDevice.HistoryEntry {
	return &domainDevice.HistoryEntry{
		ID:            m.ID,
		DeviceID:      m.DeviceID,
		TransferID:    m.TransferID,
		FromAccountID: m.FromAccountID,
		ToAccountID:   m.ToAccountID,
		Action:        domainDevice.HistoryAction(m.Action),
		Method:        domainDevice.VerificationMethod(m.Method),
		Reason:        m.Reason,
		OccurredAt:    m.OccurredAt,
	}
}
