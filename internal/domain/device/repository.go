package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for devices. IMEI uniqueness is
// enforced by the store itself (unique index), not by a read-then-write check.
type Repository interface {
	// Create inserts the device and debits the registration fee from the
	// owner's wallet in one transaction. A failed insert rolls the debit
	// back. Returns ErrDuplicateIMEI when the IMEI is already registered,
	// on any device record including transferred ones.
	Create(ctx context.Context, d *Device, fee int64) error

	GetByID(ctx context.Context, deviceID uuid.UUID) (*Device, error)
	GetByCode(ctx context.Context, code string) (*Device, error)
	GetByIMEI(ctx context.Context, imei string) (*Device, error)

	// UpdateStatus transitions the device from one status to another. The
	// update is guarded on the expected current status so that concurrent
	// writers cannot both win.
	UpdateStatus(ctx context.Context, deviceID uuid.UUID, from, to Status) error

	SetVerification(ctx context.Context, deviceID uuid.UUID, status VerificationStatus, method VerificationMethod, verifiedAt time.Time) error
	SetBlacklistFlag(ctx context.Context, deviceID uuid.UUID, flagged bool) error
	ListBlacklistFlagged(ctx context.Context, limit int) ([]*Device, error)

	List(ctx context.Context, filter *Filter) ([]*Device, int64, error)
	GetStatistics(ctx context.Context) (*Statistics, error)

	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	HistoryForDevice(ctx context.Context, deviceID uuid.UUID) ([]*HistoryEntry, error)
}

// Filter represents filtering options for listing devices
type Filter struct {
	OwnerID   *uuid.UUID
	Status    *Status
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Statistics represents registry-wide device counts
type Statistics struct {
	TotalDevices       int
	ActiveDevices      int
	TransferredDevices int
	LostDevices        int
	StolenDevices      int
	VerifiedDevices    int
	FlaggedDevices     int
}
