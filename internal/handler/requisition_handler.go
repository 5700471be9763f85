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

type requisitionRequestService interface {
	CreateRequisition(ctx context.Context, req dto.CreateRequisitionRequest, requesterID string) (*dto.CreateBatchResponse, error)
}

type requisitionApprovalService interface {
	Approve(ctx context.Context, req dto.ApproveBatchRequest, adminID string, kind models.ItemKind) (*dto.ApproveBatchResponse, error)
	Reject(ctx context.Context, batchID, adminID string) (int64, error)
}

// RequisitionHandler exposes the consumable request workflow.
type RequisitionHandler struct {
	requests  requisitionRequestService
	approvals requisitionApprovalService
}

// NewRequisitionHandler constructs the handler.
func NewRequisitionHandler(requests requisitionRequestService, approvals requisitionApprovalService) *RequisitionHandler {
	return &RequisitionHandler{requests: requests, approvals: approvals}
}

// Create godoc
// @Summary Submit a requisition cart
// @Tags Requisition
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequisitionRequest true "Requisition cart"
// @Success 200 {object} response.Envelope
// @Router /requests/requisition [post]
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req dto.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid requisition payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.requests.CreateRequisition(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Approve godoc
// @Summary Approve pending lines of a requisition batch
// @Tags Requisition
// @Accept json
// @Produce json
// @Param payload body dto.ApproveBatchRequest true "Approval decision"
// @Success 200 {object} response.Envelope
// @Router /requests/requisition/approve [put]
func (h *RequisitionHandler) Approve(c *gin.Context) {
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
	result, err := h.approvals.Approve(c.Request.Context(), req, claims.UserID, models.ItemKindRequisition)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// NotApproved godoc
// @Summary Reject every pending line of a requisition batch
// @Tags Requisition
// @Accept json
// @Produce json
// @Param payload body dto.RejectBatchRequest true "Batch reference"
// @Success 200 {object} response.Envelope
// @Router /requests/requisition/notapproved [post]
func (h *RequisitionHandler) NotApproved(c *gin.Context) {
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
