package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
	"github.com/noah-isme/stockroom-api/pkg/response"
)

type requestQueryService interface {
	List(ctx context.Context, filter models.RequestLineFilter, actor *models.JWTClaims) ([]models.RequestLine, error)
	GetBatch(ctx context.Context, batchID string, actor *models.JWTClaims) (*models.RequestBatch, []models.RequestLine, error)
}

// RequestHandler exposes read-only ledger views.
type RequestHandler struct {
	service requestQueryService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestQueryService) *RequestHandler {
	return &RequestHandler{service: service}
}

// List godoc
// @Summary List request ledger lines
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param kind query string false "BORROW or REQUISITION"
// @Param requester_id query string false "Requester (admins only)"
// @Param from query string false "Requested-at lower bound (YYYY-MM-DD)"
// @Param to query string false "Requested-at upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := parseLineFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	lines, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lines, nil)
}

// Mine godoc
// @Summary List the caller's own ledger lines
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/mine [get]
func (h *RequestHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := parseLineFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Pinned to the caller regardless of role or query params.
	filter.RequesterID = claims.UserID

	lines, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lines, nil)
}

// GetBatch godoc
// @Summary Get one batch with its lines
// @Tags Requests
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /requests/batches/{id} [get]
func (h *RequestHandler) GetBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	batch, lines, err := h.service.GetBatch(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"batch": batch, "lines": lines}, nil)
}

func parseLineFilter(c *gin.Context) (models.RequestLineFilter, error) {
	filter := models.RequestLineFilter{
		RequesterID: strings.TrimSpace(c.Query("requester_id")),
		BatchID:     strings.TrimSpace(c.Query("batch_id")),
	}
	if rawKind := c.Query("kind"); rawKind != "" {
		filter.Kind = models.ItemKind(strings.ToUpper(rawKind))
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.LineStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.LineStatus(part))
		}
		filter.Status = statuses
	}
	if rawFrom := c.Query("from"); rawFrom != "" {
		from, err := time.Parse("2006-01-02", rawFrom)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if rawTo := c.Query("to"); rawTo != "" {
		to, err := time.Parse("2006-01-02", rawTo)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		// Upper bound is exclusive; include the named day in full.
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return filter, nil
}
