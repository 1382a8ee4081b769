package handler

import (
	"net/http"

	"storda-registry/internal/middleware"
	"storda-registry/internal/usecase/account"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) SignUp(c *gin.Context) {
	var req account.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Account created", resp)
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req account.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Logged in", resp)
}

func (h *AccountHandler) Profile(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp, err := h.svc.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Profile", resp)
}

func (h *AccountHandler) SetPin(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req account.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.svc.SetPin(c.Request.Context(), accountID, &req); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "PIN updated", nil)
}
