package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
)

type requestLedger interface {
	CreateBatch(ctx context.Context, batch *models.RequestBatch, lines []models.RequestLine) error
	List(ctx context.Context, filter models.RequestLineFilter) ([]models.RequestLine, error)
	LinesByBatch(ctx context.Context, batchID string) ([]models.RequestLine, error)
	GetBatch(ctx context.Context, id string) (*models.RequestBatch, error)
}

type catalogReader interface {
	GetByID(ctx context.Context, id string) (*models.Item, error)
}

// RequestService validates and stores submitted carts. Creation never
// reserves stock; requisition carts are only checked against the quantity
// visible at submission time, and approval re-validates against current
// stock. Two requesters may both pass this check for the same stock.
type RequestService struct {
	repo   requestLedger
	items  catalogReader
	audit  auditLogger
	notify Notifier
	logger *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(repo requestLedger, items catalogReader, audit auditLogger, notify Notifier, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = NopNotifier{}
	}
	return &RequestService{repo: repo, items: items, audit: audit, notify: notify, logger: logger}
}

// CreateBorrow stores a borrow cart as a pending batch.
func (s *RequestService) CreateBorrow(ctx context.Context, req dto.CreateBorrowRequest, requesterID string) (*dto.CreateBatchResponse, error) {
	dueAt, err := parseLedgerDate(req.ReturnDueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "return_due_date must be YYYY-MM-DD")
	}
	batch := &models.RequestBatch{
		Kind:           models.ItemKindBorrow,
		RequesterID:    requesterID,
		DeliveryMethod: optionalString(req.DeliveryMethod),
		Address:        optionalString(req.Address),
		ReturnDueAt:    &dueAt,
	}
	return s.createBatch(ctx, batch, req.Items)
}

// CreateRequisition stores a requisition cart as a pending batch.
func (s *RequestService) CreateRequisition(ctx context.Context, req dto.CreateRequisitionRequest, requesterID string) (*dto.CreateBatchResponse, error) {
	batch := &models.RequestBatch{
		Kind:        models.ItemKindRequisition,
		RequesterID: requesterID,
		Purpose:     optionalString(req.Purpose),
	}
	return s.createBatch(ctx, batch, req.Items)
}

func (s *RequestService) createBatch(ctx context.Context, batch *models.RequestBatch, cart []dto.CartLine) (*dto.CreateBatchResponse, error) {
	if len(cart) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one item is required")
	}

	lines := make([]models.RequestLine, 0, len(cart))
	for _, cartLine := range cart {
		if cartLine.Quantity <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("quantity for item %s must be positive", cartLine.ItemID))
		}
		item, err := s.items.GetByID(ctx, cartLine.ItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("item %s not found", cartLine.ItemID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
		}
		if !item.Active || item.Restricted {
			return nil, appErrors.Clone(appErrors.ErrItemUnavailable, fmt.Sprintf("item %s is not requestable", item.Name))
		}
		if item.Kind != batch.Kind {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %s is not a %s item", item.Name, batch.Kind))
		}
		// Submission-time availability check for requisitions; nothing is
		// reserved here. Approval is the single point of truth.
		if batch.Kind == models.ItemKindRequisition && cartLine.Quantity > item.AvailableQuantity {
			return nil, appErrors.Clone(appErrors.ErrInsufficientStock,
				fmt.Sprintf("item %s has only %d available", item.Name, item.AvailableQuantity))
		}
		lines = append(lines, models.RequestLine{
			ItemID:            item.ID,
			RequestedQuantity: cartLine.Quantity,
		})
	}

	if err := s.repo.CreateBatch(ctx, batch, lines); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request batch")
	}

	s.emitAudit(ctx, batch.RequesterID, batch.ID, lines)
	s.notify.Notify(ctx, DecisionEvent{
		Action:  models.AuditActionBatchCreate,
		BatchID: batch.ID,
		ActorID: batch.RequesterID,
	})
	return &dto.CreateBatchResponse{BatchID: batch.ID}, nil
}

// List returns ledger lines, scoping non-admin actors to their own requests.
func (s *RequestService) List(ctx context.Context, filter models.RequestLineFilter, actor *models.JWTClaims) ([]models.RequestLine, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		filter.RequesterID = actor.UserID
	}
	lines, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return lines, nil
}

// GetBatch returns a batch with its lines, enforcing requester scope.
func (s *RequestService) GetBatch(ctx context.Context, batchID string, actor *models.JWTClaims) (*models.RequestBatch, []models.RequestLine, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if actor.Role != models.RoleAdmin && batch.RequesterID != actor.UserID {
		return nil, nil, appErrors.ErrForbidden
	}
	lines, err := s.repo.LinesByBatch(ctx, batch.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch lines")
	}
	return batch, lines, nil
}

func (s *RequestService) emitAudit(ctx context.Context, requesterID, batchID string, lines []models.RequestLine) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(lines)
	log := &models.AuditLog{
		UserID:     &requesterID,
		Action:     models.AuditActionBatchCreate,
		Resource:   "request_batch",
		ResourceID: &batchID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "request-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
