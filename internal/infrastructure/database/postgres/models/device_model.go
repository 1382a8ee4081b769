package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel represents the database model for devices. The unique index on
// IMEI covers every record, transferred ones included, so re-registering a
// handed-over device without a formal transfer is impossible.
type DeviceModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code               string     `gorm:"type:varchar(16);not null;uniqueIndex:idx_devices_code"`
	IMEI               string     `gorm:"column:imei;type:varchar(17);not null;uniqueIndex:idx_devices_imei"`
	MACAddress         *string    `gorm:"column:mac_address;type:varchar(32)"`
	Brand              string     `gorm:"type:varchar(100);not null"`
	Model              string     `gorm:"type:varchar(100);not null"`
	Storage            *string    `gorm:"type:varchar(50)"`
	Color              *string    `gorm:"type:varchar(50)"`
	OwnerID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status             string     `gorm:"type:varchar(20);not null;default:'active'"`
	VerificationStatus string     `gorm:"type:varchar(20);not null;default:'unverified'"`
	VerificationMethod string     `gorm:"type:varchar(20);not null;default:'none'"`
	BlacklistFlagged   bool       `gorm:"not null;default:false;index"`
	VerifiedAt         *time.Time `gorm:"type:timestamp"`
	RegisteredAt       time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}

// DeviceHistoryModel is the append-only device lifecycle log.
type DeviceHistoryModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DeviceID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	TransferID    *uuid.UUID `gorm:"type:uuid"`
	FromAccountID uuid.UUID  `gorm:"type:uuid;not null"`
	ToAccountID   *uuid.UUID `gorm:"type:uuid"`
	Action        string     `gorm:"type:varchar(50);not null"`
	Method        string     `gorm:"type:varchar(20);not null;default:'none'"`
	Reason        string     `gorm:"type:varchar(500)"`
	OccurredAt    time.Time  `gorm:"not null"`
}

func (DeviceHistoryModel) TableName() string {
	return "device_history"
}
