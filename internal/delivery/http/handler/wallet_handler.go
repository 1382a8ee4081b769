package handler

import (
	"net/http"
	"strconv"

	"storda-registry/internal/middleware"
	"storda-registry/internal/usecase/wallet"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	svc *wallet.Service
}

func NewWalletHandler(svc *wallet.Service) *WalletHandler {
	return &WalletHandler{svc: svc}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp, err := h.svc.Balance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Wallet balance", resp)
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req wallet.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.TopUp(c.Request.Context(), accountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Wallet topped up", resp)
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.svc.Transactions(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Wallet statement", resp)
}
