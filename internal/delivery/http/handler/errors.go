package handler

import (
	"errors"
	"net/http"

	"storda-registry/internal/domain/device"
	"storda-registry/internal/domain/ledger"
	"storda-registry/internal/domain/transfer"
	"storda-registry/internal/logger"
	appErrors "storda-registry/pkg/errors"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps domain errors to HTTP statuses. Anything unmapped is a
// 500 with a generic body; the detail goes to the log only.
func respondError(c *gin.Context, err error) {
	var status int

	switch {
	case errors.Is(err, appErrors.ErrInvalidCredentials),
		errors.Is(err, appErrors.ErrInvalidToken),
		errors.Is(err, appErrors.ErrOTPMismatch),
		errors.Is(err, appErrors.ErrPinMismatch):
		status = http.StatusUnauthorized

	case errors.Is(err, appErrors.ErrUnauthorized),
		errors.Is(err, appErrors.ErrAccountInactive),
		errors.Is(err, device.ErrNotOwner):
		status = http.StatusForbidden

	case errors.Is(err, appErrors.ErrAccountNotFound),
		errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, transfer.ErrTransferNotFound),
		errors.Is(err, ledger.ErrWalletNotFound):
		status = http.StatusNotFound

	case errors.Is(err, appErrors.ErrAccountAlreadyExists),
		errors.Is(err, device.ErrDuplicateIMEI),
		errors.Is(err, device.ErrAlreadyVerified),
		errors.Is(err, device.ErrIllegalTransition),
		errors.Is(err, device.ErrNotVerified),
		errors.Is(err, device.ErrUnavailable),
		errors.Is(err, transfer.ErrTransferPending),
		errors.Is(err, transfer.ErrAlreadyResolved):
		status = http.StatusConflict

	case errors.Is(err, transfer.ErrTransferExpired):
		status = http.StatusGone

	case errors.Is(err, ledger.ErrInsufficientBalance):
		status = http.StatusPaymentRequired

	case errors.Is(err, appErrors.ErrPinLocked):
		status = http.StatusTooManyRequests

	case errors.Is(err, device.ErrBlacklisted):
		status = http.StatusUnprocessableEntity

	case errors.Is(err, appErrors.ErrInvalidInput),
		errors.Is(err, appErrors.ErrWeakPassword),
		errors.Is(err, appErrors.ErrPinNotSet),
		errors.Is(err, device.ErrInvalidIMEI),
		errors.Is(err, transfer.ErrSelfTransfer),
		errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusBadRequest

	default:
		logger.Error("unhandled error", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	message := err.Error()
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	utils.ErrorResponse(c, status, message)
}

// bindError reports a failed JSON/query binding.
func bindError(c *gin.Context, err error) {
	utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
}
