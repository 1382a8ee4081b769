package database

import (
	"fmt"

	"storda-registry/internal/infrastructure/database/postgres/models"
)

// Migrate creates the schema. The partial unique index on pending transfers
// cannot be expressed with gorm tags, so it is applied as raw SQL; it is what
// serializes transfer initiation per device.
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(
		&models.AccountModel{},
		&models.WalletModel{},
		&models.LedgerTransactionModel{},
		&models.DeviceModel{},
		&models.DeviceHistoryModel{},
		&models.TransferModel{},
	); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	if err := d.DB.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_transfers_pending_device
		 ON transfers (device_id) WHERE status = 'pending'`,
	).Error; err != nil {
		return fmt.Errorf("failed to create pending transfer index: %w", err)
	}

	return nil
}
