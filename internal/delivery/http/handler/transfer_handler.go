package handler

import (
	"net/http"

	"storda-registry/internal/middleware"
	"storda-registry/internal/usecase/transfer"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransferHandler struct {
	svc *transfer.Service
}

func NewTransferHandler(svc *transfer.Service) *TransferHandler {
	return &TransferHandler{svc: svc}
}

func (h *TransferHandler) Initiate(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req transfer.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Initiate(c.Request.Context(), accountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Transfer initiated", resp)
}

func (h *TransferHandler) Get(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transfer ID")
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), accountID, transferID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfer", resp)
}

func (h *TransferHandler) List(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp, err := h.svc.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfers", resp)
}

func (h *TransferHandler) Accept(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transfer ID")
		return
	}

	var req transfer.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.svc.Accept(c.Request.Context(), accountID, transferID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfer accepted", resp)
}

func (h *TransferHandler) Reject(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transfer ID")
		return
	}

	resp, err := h.svc.Reject(c.Request.Context(), accountID, transferID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfer rejected", resp)
}

func (h *TransferHandler) ResendCode(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transfer ID")
		return
	}

	if err := h.svc.ResendCode(c.Request.Context(), accountID, transferID); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Confirmation code re-sent", nil)
}
