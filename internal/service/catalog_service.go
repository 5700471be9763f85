package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	"github.com/noah-isme/stockroom-api/internal/repository"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
)

type catalogStore interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error)
	Update(ctx context.Context, id string, params repository.UpdateItemParams) (*models.Item, error)
}

// CatalogService manages catalog entries. Stock quantities are seeded at
// creation and afterwards move only through the stock ledger.
type CatalogService struct {
	repo   catalogStore
	audit  auditLogger
	logger *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogStore, audit auditLogger, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, audit: audit, logger: logger}
}

// Create adds a catalog item.
func (s *CatalogService) Create(ctx context.Context, req dto.CreateItemRequest, actorID string) (*models.Item, error) {
	kind := models.ItemKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if kind != models.ItemKindBorrow && kind != models.ItemKindRequisition {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be BORROW or REQUISITION")
	}
	if req.AvailableQuantity < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "available_quantity must not be negative")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	item := &models.Item{
		Name:              name,
		Kind:              kind,
		AvailableQuantity: req.AvailableQuantity,
		Restricted:        req.Restricted,
		Active:            true,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}
	s.emitAudit(ctx, actorID, models.AuditActionItemCreate, item)
	return item, nil
}

// Update edits catalog metadata.
func (s *CatalogService) Update(ctx context.Context, id string, req dto.UpdateItemRequest, actorID string) (*models.Item, error) {
	item, err := s.repo.Update(ctx, id, repository.UpdateItemParams{
		Name:       req.Name,
		Restricted: req.Restricted,
		Active:     req.Active,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item")
	}
	s.emitAudit(ctx, actorID, models.AuditActionItemUpdate, item)
	return item, nil
}

// List returns catalog items with pagination.
func (s *CatalogService) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *CatalogService) emitAudit(ctx context.Context, actorID, action string, item *models.Item) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(item)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "item",
		ResourceID: &item.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "catalog-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
