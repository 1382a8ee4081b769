package postgres

import (
	"errors"
	"testing"
)

func TestDuplicateKeyOn(t *testing.T) {
	imeiErr := errors.New(`ERROR: duplicate key value violates unique constraint "idx_devices_imei" (SQLSTATE 23505)`)
	codeErr := errors.New(`ERROR: duplicate key value violates unique constraint "idx_devices_code" (SQLSTATE 23505)`)

	if !duplicateKeyOn(imeiErr, "idx_devices_imei") {
		t.Fatal("expected IMEI unique violation to match its constraint")
	}
	// A colliding device code must not be reported as a duplicate IMEI.
	if duplicateKeyOn(codeErr, "idx_devices_imei") {
		t.Fatal("code unique violation must not match the IMEI constraint")
	}
	if duplicateKeyOn(errors.New("connection refused"), "idx_devices_imei") {
		t.Fatal("non-constraint errors must not match")
	}
}
