package registry

import (
	"time"

	"storda-registry/internal/domain/device"

	"github.com/google/uuid"
)

type RegisterDeviceRequest struct {
	IMEI       string `json:"imei" binding:"required,imei"`
	MACAddress string `json:"mac_address" binding:"omitempty,mac"`
	Brand      string `json:"brand" binding:"required,min=2,max=50"`
	Model      string `json:"model" binding:"required,min=1,max=100"`
	Storage    string `json:"storage" binding:"omitempty,max=20"`
	Color      string `json:"color" binding:"omitempty,max=30"`
	// Optional ownership evidence supplied up front. Starts verification
	// at pending instead of unverified.
	ReceiptURL string `json:"receipt_url" binding:"omitempty,url,max=500"`
	PhotoURL   string `json:"photo_url" binding:"omitempty,url,max=500"`
}

type ReportRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=lost stolen"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type ListRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=active transferred lost stolen"`
	Search   string `form:"search" binding:"omitempty,max=100"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type DeviceResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Code               string     `json:"code"`
	IMEI               string     `json:"imei"`
	MACAddress         *string    `json:"mac_address,omitempty"`
	Brand              string     `json:"brand"`
	Model              string     `json:"model"`
	Storage            *string    `json:"storage,omitempty"`
	Color              *string    `json:"color,omitempty"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	Status             string     `json:"status"`
	VerificationStatus string     `json:"verification_status"`
	VerificationMethod string     `json:"verification_method"`
	BlacklistFlagged   bool       `json:"blacklist_flagged"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	RegisteredAt       time.Time  `json:"registered_at"`
}

// LookupResponse is the public view of a device, returned for IMEI lookups
// by prospective buyers. It exposes standing, never the owner.
type LookupResponse struct {
	Code               string `json:"code"`
	Brand              string `json:"brand"`
	Model              string `json:"model"`
	Status             string `json:"status"`
	VerificationStatus string `json:"verification_status"`
	BlacklistFlagged   bool   `json:"blacklist_flagged"`
}

type HistoryResponse struct {
	Action     string     `json:"action"`
	Method     string     `json:"method,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	TransferID *uuid.UUID `json:"transfer_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func toDeviceResponse(d *device.Device) *DeviceResponse {
	return &DeviceResponse{
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
	}
}

func toLookupResponse(d *device.Device) *LookupResponse {
	return &LookupResponse{
		Code:               d.Code,
		Brand:              d.Brand,
		Model:              d.Model,
		Status:             string(d.Status),
		VerificationStatus: string(d.VerificationStatus),
		BlacklistFlagged:   d.BlacklistFlagged,
	}
}

func toHistoryResponse(entries []*device.HistoryEntry) []*HistoryResponse {
	out := make([]*HistoryResponse, 0, len(entries))
	for _, e := range entries {
		method := ""
		if e.Method != device.MethodNone {
			method = string(e.Method)
		}
		out = append(out, &HistoryResponse{
			Action:     string(e.Action),
			Method:     method,
			Reason:     e.Reason,
			TransferID: e.TransferID,
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}
