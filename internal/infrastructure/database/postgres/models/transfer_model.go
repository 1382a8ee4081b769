package models

import (
	"time"

	"github.com/google/uuid"
)

// TransferModel represents the database model for transfer requests. The
// partial unique index on (device_id) WHERE status = 'pending' is what
// serializes initiate calls per device; see the migration SQL.
type TransferModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DeviceID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_transfers_device_status"`
	FromAccountID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ToAccountID      *uuid.UUID `gorm:"type:uuid"`
	RecipientContact string     `gorm:"type:varchar(255);not null"`
	ContactChannel   string     `gorm:"type:varchar(10);not null"`
	RecipientName    string     `gorm:"type:varchar(255);not null"`
	RequireID        bool       `gorm:"not null;default:false"`
	RecipientNIN     *string    `gorm:"column:recipient_nin;type:varchar(11)"`
	Reason           string     `gorm:"type:varchar(500)"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_transfers_device_status"`
	CreatedAt        time.Time  `gorm:"not null"`
	ExpiresAt        time.Time  `gorm:"not null;index"`
	ResolvedAt       *time.Time `gorm:"type:timestamp"`
}

func (TransferModel) TableName() string {
	return "transfers"
}
