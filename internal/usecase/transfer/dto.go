package transfer

import (
	"time"

	domain "storda-registry/internal/domain/transfer"

	"github.com/google/uuid"
)

type InitiateRequest struct {
	DeviceID         uuid.UUID `json:"device_id" binding:"required"`
	RecipientContact string    `json:"recipient_contact" binding:"required,max=100"`
	ContactChannel   string    `json:"contact_channel" binding:"required,oneof=email phone"`
	RecipientName    string    `json:"recipient_name" binding:"required,min=2,max=100"`
	RequireID        bool      `json:"require_id"`
	RecipientNIN     string    `json:"recipient_nin" binding:"omitempty,len=11,numeric"`
	Reason           string    `json:"reason" binding:"omitempty,max=500"`
	Pin              string    `json:"pin" binding:"required,len=4"`
}

type AcceptRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type TransferResponse struct {
	ID               uuid.UUID  `json:"id"`
	DeviceID         uuid.UUID  `json:"device_id"`
	FromAccountID    uuid.UUID  `json:"from_account_id"`
	ToAccountID      *uuid.UUID `json:"to_account_id,omitempty"`
	RecipientContact string     `json:"recipient_contact"`
	ContactChannel   string     `json:"contact_channel"`
	RecipientName    string     `json:"recipient_name"`
	RequireID        bool       `json:"require_id"`
	Reason           string     `json:"reason,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

func toTransferResponse(r *domain.Request) *TransferResponse {
	return &TransferResponse{
		ID:               r.ID,
		DeviceID:         r.DeviceID,
		FromAccountID:    r.FromAccountID,
		ToAccountID:      r.ToAccountID,
		RecipientContact: r.RecipientContact,
		ContactChannel:   string(r.ContactChannel),
		RecipientName:    r.RecipientName,
		RequireID:        r.RequireID,
		Reason:           r.Reason,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
		ExpiresAt:        r.ExpiresAt,
		ResolvedAt:       r.ResolvedAt,
	}
}
