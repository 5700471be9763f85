package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
	"github.com/noah-isme/stockroom-api/pkg/response"
)

type borrowRequestService interface {
	CreateBorrow(ctx context.Context, req dto.CreateBorrowRequest, requesterID string) (*dto.CreateBatchResponse, error)
}

type borrowApprovalService interface {
	Approve(ctx context.Context, req dto.ApproveBatchRequest, adminID string, kind models.ItemKind) (*dto.ApproveBatchResponse, error)
	Reject(ctx context.Context, batchID, adminID string) (int64, error)
	Return(ctx context.Context, req dto.ReturnBatchRequest, adminID string) error
}

// BorrowHandler exposes the loan request workflow.
type BorrowHandler struct {
	requests  borrowRequestService
	approvals borrowApprovalService
}

// NewBorrowHandler constructs the handler.
func NewBorrowHandler(requests borrowRequestService, approvals borrowApprovalService) *BorrowHandler {
	return &BorrowHandler{requests: requests, approvals: approvals}
}

// Create godoc
// @Summary Submit a borrow cart
// @Tags Borrow
// @Accept json
// @Produce json
// @Param payload body dto.CreateBorrowRequest true "Borrow cart"
// @Success 200 {object} response.Envelope
// @Router /requests/borrow [post]
func (h *BorrowHandler) Create(c *gin.Context) {
	var req dto.CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid borrow payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.requests.CreateBorrow(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Approve godoc
// @Summary Approve pending lines of a borrow batch
// @Tags Borrow
// @Accept json
// @Produce json
// @Param payload body dto.ApproveBatchRequest true "Approval decision"
// @Success 200 {object} response.Envelope
// @Router /requests/borrow/approve [put]
func (h *BorrowHandler) Approve(c *gin.Context) {
	var req dto.ApproveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.approvals.Approve(c.Request.Context(), req, claims.UserID, models.ItemKindBorrow)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject every pending line of a borrow batch
// @Tags Borrow
// @Accept json
// @Produce json
// @Param payload body dto.RejectBatchRequest true "Batch reference"
// @Success 200 {object} response.Envelope
// @Router /requests/borrow/reject [put]
func (h *BorrowHandler) Reject(c *gin.Context) {
	var req dto.RejectBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reject payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rejected, err := h.approvals.Reject(c.Request.Context(), req.BatchID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"batch_id": req.BatchID, "rejected": rejected}, nil)
}

// Return godoc
// @Summary Process returns on approved borrow lines
// @Tags Borrow
// @Accept json
// @Produce json
// @Param payload body dto.ReturnBatchRequest true "Return details"
// @Success 200 {object} response.Envelope
// @Router /requests/borrow/return [post]
func (h *BorrowHandler) Return(c *gin.Context) {
	var req dto.ReturnBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid return payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.approvals.Return(c.Request.Context(), req, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"batch_id": req.BatchID, "returned": len(req.Lines)}, nil)
}
