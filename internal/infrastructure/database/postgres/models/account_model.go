package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel represents the database model for registry accounts.
type AccountModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	PhoneNumber    string    `gorm:"type:varchar(32);index"`
	FullName       string    `gorm:"type:varchar(255);not null"`
	PasswordHashed string    `gorm:"type:varchar(255);not null"`
	PinHashed      string    `gorm:"type:varchar(255)"`
	Role           string    `gorm:"type:varchar(50);not null;default:'user'"`
	IsActive       bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (AccountModel) TableName() string {
	return "accounts"
}
