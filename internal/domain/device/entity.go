package device

import (
	"time"

	"github.com/google/uuid"
)

// Device represents one physical device under protection. Devices are never
// physically deleted; status transitions are recorded and history preserved.
type Device struct {
	ID                 uuid.UUID
	Code               string // human-facing identifier, STD-XXXXXX
	IMEI               string
	MACAddress         *string
	Brand              string
	Model              string
	Storage            *string
	Color              *string
	OwnerID            uuid.UUID
	Status             Status
	VerificationStatus VerificationStatus
	VerificationMethod VerificationMethod
	// BlacklistFlagged marks devices whose registry check failed or timed
	// out at registration time and still needs a re-check.
	BlacklistFlagged bool
	VerifiedAt       *time.Time
	RegisteredAt     time.Time
	UpdatedAt        time.Time
}

type Status string

const (
	StatusActive      Status = "active"
	StatusTransferred Status = "transferred"
	StatusLost        Status = "lost"
	StatusStolen      Status = "stolen"
)

type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationPending    VerificationStatus = "pending"
	VerificationUnverified VerificationStatus = "unverified"
)

type VerificationMethod string

const (
	MethodReceipt VerificationMethod = "receipt"
	MethodPhoto   VerificationMethod = "photo"
	MethodBoth    VerificationMethod = "both"
	MethodNone    VerificationMethod = "none"
)

// Transferable reports whether the device may enter a transfer. Lost and
// stolen devices are frozen, and the ownership claim must be verified first.
func (d *Device) Transferable() bool {
	return d.Status == StatusActive && d.VerificationStatus == VerificationVerified
}

// HistoryAction identifies what produced a history entry.
type HistoryAction string

const (
	ActionRegistered       HistoryAction = "registered"
	ActionVerified         HistoryAction = "verified"
	ActionReportedLost     HistoryAction = "reported_lost"
	ActionReportedStolen   HistoryAction = "reported_stolen"
	ActionRecovered        HistoryAction = "recovered"
	ActionTransferAccepted HistoryAction = "transfer_accepted"
	ActionTransferRejected HistoryAction = "transfer_rejected"
)

// HistoryEntry is one append-only record of a device lifecycle event.
type HistoryEntry struct {
	ID            uuid.UUID
	DeviceID      uuid.UUID
	TransferID    *uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   *uuid.UUID
	Action        HistoryAction
	Method        VerificationMethod
	Reason        string
	OccurredAt    time.Time
}
