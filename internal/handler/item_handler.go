package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
	"github.com/noah-isme/stockroom-api/pkg/response"
)

type catalogService interface {
	Create(ctx context.Context, req dto.CreateItemRequest, actorID string) (*models.Item, error)
	Update(ctx context.Context, id string, req dto.UpdateItemRequest, actorID string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, *models.Pagination, error)
}

// ItemHandler exposes catalog management endpoints.
type ItemHandler struct {
	service catalogService
}

// NewItemHandler constructs the handler.
func NewItemHandler(service catalogService) *ItemHandler {
	return &ItemHandler{service: service}
}

// List godoc
// @Summary List catalog items
// @Tags Catalog
// @Produce json
// @Param kind query string false "BORROW or REQUISITION"
// @Param active query boolean false "Active flag"
// @Param search query string false "Name substring"
// @Param page query integer false "Page"
// @Param page_size query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	filter := models.ItemFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if rawKind := c.Query("kind"); rawKind != "" {
		filter.Kind = models.ItemKind(strings.ToUpper(rawKind))
	}
	if rawActive := c.Query("active"); rawActive != "" {
		active, err := strconv.ParseBool(rawActive)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Add a catalog item
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateItemRequest true "Item"
// @Success 201 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid item payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Edit catalog item metadata
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.UpdateItemRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid item payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
