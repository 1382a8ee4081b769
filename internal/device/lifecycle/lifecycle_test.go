package lifecycle

import (
	"errors"
	"testing"

	"storda-registry/internal/domain/device"
)

func TestValidateStatusTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    device.Status
		to      device.Status
		allowed bool
	}{
		{"active to lost", device.StatusActive, device.StatusLost, true},
		{"active to stolen", device.StatusActive, device.StatusStolen, true},
		{"active to transferred", device.StatusActive, device.StatusTransferred, true},
		{"lost to active", device.StatusLost, device.StatusActive, true},
		{"stolen to active", device.StatusStolen, device.StatusActive, true},
		{"lost to transferred", device.StatusLost, device.StatusTransferred, false},
		{"stolen to transferred", device.StatusStolen, device.StatusTransferred, false},
		{"transferred to lost", device.StatusTransferred, device.StatusLost, false},
		{"transferred to active", device.StatusTransferred, device.StatusActive, true},
		{"lost to stolen", device.StatusLost, device.StatusStolen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStatusTransition(tc.from, tc.to)
			if tc.allowed && err != nil {
				t.Fatalf("expected transition %s -> %s to be allowed, got %v", tc.from, tc.to, err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("expected transition %s -> %s to be rejected", tc.from, tc.to)
				}
				if !errors.Is(err, device.ErrIllegalTransition) {
					t.Fatalf("expected ErrIllegalTransition, got %v", err)
				}
			}
		})
	}
}

func TestValidateStatusTransitionUnknownStatus(t *testing.T) {
	if err := ValidateStatusTransition(device.Status("retired"), device.StatusActive); err == nil {
		t.Fatal("expected error for unknown current status")
	}
}

func TestReportTarget(t *testing.T) {
	if status, ok := ReportTarget("lost"); !ok || status != device.StatusLost {
		t.Fatalf("unexpected report target: %s, %v", status, ok)
	}
	if status, ok := ReportTarget("stolen"); !ok || status != device.StatusStolen {
		t.Fatalf("unexpected report target: %s, %v", status, ok)
	}
	if _, ok := ReportTarget("broken"); ok {
		t.Fatal("expected unknown report kind to be rejected")
	}
}
