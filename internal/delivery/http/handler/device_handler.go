package handler

import (
	"net/http"

	"storda-registry/internal/middleware"
	"storda-registry/internal/usecase/registry"
	"storda-registry/internal/usecase/verification"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeviceHandler struct {
	registry *registry.Service
	verify   *verification.Service
}

func NewDeviceHandler(registrySvc *registry.Service, verifySvc *verification.Service) *DeviceHandler {
	return &DeviceHandler{registry: registrySvc, verify: verifySvc}
}

func (h *DeviceHandler) Register(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req registry.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.registry.Register(c.Request.Context(), accountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Device registered", resp)
}

func (h *DeviceHandler) Get(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	resp, err := h.registry.Get(c.Request.Context(), accountID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device", resp)
}

func (h *DeviceHandler) List(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req registry.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	devices, total, err := h.registry.List(c.Request.Context(), accountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Devices", gin.H{
		"devices": devices,
		"total":   total,
	})
}

func (h *DeviceHandler) GetByCode(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp, err := h.registry.GetByCode(c.Request.Context(), accountID, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device", resp)
}

// Lookup is the public pre-purchase check. No authentication; only the
// device's standing is exposed.
func (h *DeviceHandler) Lookup(c *gin.Context) {
	resp, err := h.registry.Lookup(c.Request.Context(), c.Param("imei"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device standing", resp)
}

func (h *DeviceHandler) Verify(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var req verification.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.verify.Verify(c.Request.Context(), accountID, deviceID, &req); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device verified", nil)
}

func (h *DeviceHandler) Report(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var req registry.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.registry.Report(c.Request.Context(), accountID, deviceID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device reported", resp)
}

func (h *DeviceHandler) Recover(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	resp, err := h.registry.Recover(c.Request.Context(), accountID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device recovered", resp)
}

func (h *DeviceHandler) Activate(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	resp, err := h.registry.Activate(c.Request.Context(), accountID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device activated", resp)
}

func (h *DeviceHandler) History(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	resp, err := h.registry.History(c.Request.Context(), accountID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device history", resp)
}

// Statistics is the admin overview of the whole registry.
func (h *DeviceHandler) Statistics(c *gin.Context) {
	stats, err := h.registry.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Registry statistics", stats)
}
