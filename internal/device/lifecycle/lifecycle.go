package lifecycle

import (
	"fmt"

	"storda-registry/internal/domain/device"

	appErrors "storda-registry/pkg/errors"
)

// State machine for device status transitions. "transferred" is terminal from
// the originating owner's perspective; the device re-enters the lifecycle as
// "active" under the new owner when a transfer completes.
var validTransitions = map[device.Status][]device.Status{
	device.StatusActive: {
		device.StatusTransferred, // via accepted transfer only
		device.StatusLost,        // owner report
		device.StatusStolen,      // owner report
	},
	device.StatusLost: {
		device.StatusActive, // recovery confirmation / owner unreport
	},
	device.StatusStolen: {
		device.StatusActive,
	},
	device.StatusTransferred: {
		// The new owner activates the device to continue its lifecycle.
		// No direct transferred->lost; the device must be active first.
		device.StatusActive,
	},
}

// ValidateStatusTransition checks whether the status transition is allowed.
func ValidateStatusTransition(currentStatus, newStatus device.Status) error {
	allowedStatuses, exists := validTransitions[currentStatus]
	if !exists {
		return appErrors.NewAppError(
			"INVALID_STATUS",
			fmt.Sprintf("Unknown current status: %s", currentStatus),
			device.ErrIllegalTransition,
		)
	}

	for _, allowed := range allowedStatuses {
		if newStatus == allowed {
			return nil
		}
	}

	return appErrors.NewAppError(
		"ILLEGAL_TRANSITION",
		fmt.Sprintf("Cannot transition from %s to %s", currentStatus, newStatus),
		device.ErrIllegalTransition,
	)
}

// GetAllowedTransitions returns allowed next statuses.
func GetAllowedTransitions(currentStatus device.Status) []device.Status {
	return validTransitions[currentStatus]
}

// ReportTarget maps an owner report kind to the resulting status.
func ReportTarget(kind string) (device.Status, bool) {
	switch kind {
	case "lost":
		return device.StatusLost, true
	case "stolen":
		return device.StatusStolen, true
	}
	return "", false
}
