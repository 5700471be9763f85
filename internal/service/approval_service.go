package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
)

type approvalLedger interface {
	GetBatch(ctx context.Context, id string) (*models.RequestBatch, error)
	LinesByBatch(ctx context.Context, batchID string) ([]models.RequestLine, error)
	MarkApproved(ctx context.Context, lineID string, qty int, decidedBy string, decidedAt time.Time) error
	RejectPending(ctx context.Context, batchID, decidedBy string, decidedAt time.Time) (int64, error)
	MarkReturned(ctx context.Context, lineID string, qty int, decidedBy string, returnedAt time.Time) error
	ReopenReturned(ctx context.Context, lineID string) error
}

type stockLedger interface {
	Reserve(ctx context.Context, itemID string, qty int) (int, error)
	Release(ctx context.Context, itemID string, qty int) (int, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ApprovalService drives the request state machine. It is the only writer of
// terminal line states, and the only caller of the stock ledger.
//
// Approval semantics: structural problems (unknown line, wrong batch, line
// not pending, quantity out of range) fail the whole call before any stock
// moves. Stock exhaustion is line-scoped: the affordable lines commit, the
// rest stay pending and are reported back.
type ApprovalService struct {
	repo    approvalLedger
	stock   stockLedger
	audit   auditLogger
	notify  Notifier
	metrics conflictCounter
	logger  *zap.Logger
}

type conflictCounter interface {
	IncStockConflict()
}

// ApprovalOption configures the service.
type ApprovalOption func(*ApprovalService)

// WithApprovalMetrics counts line-level stock conflicts.
func WithApprovalMetrics(metrics conflictCounter) ApprovalOption {
	return func(s *ApprovalService) {
		s.metrics = metrics
	}
}

// NewApprovalService constructs the service.
func NewApprovalService(repo approvalLedger, stock stockLedger, audit auditLogger, notify Notifier, logger *zap.Logger, opts ...ApprovalOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = NopNotifier{}
	}
	svc := &ApprovalService{repo: repo, stock: stock, audit: audit, notify: notify, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Approve commits admin quantity decisions for pending lines of a batch.
// The batch must be of the kind the calling surface handles.
func (s *ApprovalService) Approve(ctx context.Context, req dto.ApproveBatchRequest, adminID string, kind models.ItemKind) (*dto.ApproveBatchResponse, error) {
	batch, lines, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.Kind != kind {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch %s is not a %s batch", batch.ID, kind))
	}

	byID := make(map[string]*models.RequestLine, len(lines))
	for i := range lines {
		byID[lines[i].ID] = &lines[i]
	}

	seen := make(map[string]struct{}, len(req.Lines))
	for _, reqLine := range req.Lines {
		if _, dup := seen[reqLine.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate line %s", reqLine.ID))
		}
		seen[reqLine.ID] = struct{}{}

		line, ok := byID[reqLine.ID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("line %s not found in batch", reqLine.ID))
		}
		if line.Status != models.LineStatusPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("line %s is not pending", reqLine.ID))
		}
		if reqLine.ApprovedQuantity < 0 || reqLine.ApprovedQuantity > line.RequestedQuantity {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("approved quantity for line %s must be between 0 and %d", reqLine.ID, line.RequestedQuantity))
		}
	}

	now := time.Now().UTC()
	result := &dto.ApproveBatchResponse{BatchID: batch.ID}

	for _, reqLine := range req.Lines {
		line := byID[reqLine.ID]

		if reqLine.ApprovedQuantity > 0 {
			if _, err := s.stock.Reserve(ctx, line.ItemID, reqLine.ApprovedQuantity); err != nil {
				appErr := appErrors.FromError(err)
				if appErr.Code == appErrors.ErrInsufficientStock.Code {
					if s.metrics != nil {
						s.metrics.IncStockConflict()
					}
					result.Failed = append(result.Failed, dto.FailedLine{ID: line.ID, Reason: appErr.Code})
					continue
				}
				return nil, err
			}
		}

		if err := s.repo.MarkApproved(ctx, line.ID, reqLine.ApprovedQuantity, adminID, now); err != nil {
			// The line did not commit, whatever failed; its reservation must
			// come back or the counter drifts below the committed total.
			if reqLine.ApprovedQuantity > 0 {
				if _, releaseErr := s.stock.Release(ctx, line.ItemID, reqLine.ApprovedQuantity); releaseErr != nil {
					s.logger.Error("failed to release stock for uncommitted line",
						zap.String("line_id", line.ID), zap.Error(releaseErr))
				}
			}
			if errors.Is(err, sql.ErrNoRows) {
				// Another admin decided the line between our read and this write.
				result.Failed = append(result.Failed, dto.FailedLine{ID: line.ID, Reason: appErrors.ErrConflict.Code})
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit approval")
		}
		result.Approved = append(result.Approved, line.ID)
	}

	if len(result.Approved) == 0 && len(result.Failed) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInsufficientStock, "no line could be approved")
	}

	s.emitAudit(ctx, adminID, models.AuditActionBatchApprove, batch.ID, result)
	s.notify.Notify(ctx, DecisionEvent{
		Action:  models.AuditActionBatchApprove,
		BatchID: batch.ID,
		ActorID: adminID,
		Lines:   result.Approved,
	})
	return result, nil
}

// Reject moves every pending line of a batch to NOT_APPROVED. Rejecting a
// batch with nothing pending is a no-op, not an error.
func (s *ApprovalService) Reject(ctx context.Context, batchID, adminID string) (int64, error) {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	rows, err := s.repo.RejectPending(ctx, batch.ID, adminID, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject batch")
	}

	if rows > 0 {
		s.emitAudit(ctx, adminID, models.AuditActionBatchReject, batch.ID, map[string]int64{"rejected": rows})
		s.notify.Notify(ctx, DecisionEvent{
			Action:  models.AuditActionBatchReject,
			BatchID: batch.ID,
			ActorID: adminID,
		})
	}
	return rows, nil
}

// Return closes approved borrow lines and hands their stock back.
func (s *ApprovalService) Return(ctx context.Context, req dto.ReturnBatchRequest, adminID string) error {
	batch, lines, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return err
	}
	if batch.Kind != models.ItemKindBorrow {
		return appErrors.Clone(appErrors.ErrValidation, "returns apply to borrow batches only")
	}

	returnedAt, err := parseLedgerDate(req.ActualReturnDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "actual_return_date must be YYYY-MM-DD")
	}

	byID := make(map[string]*models.RequestLine, len(lines))
	for i := range lines {
		byID[lines[i].ID] = &lines[i]
	}

	seen := make(map[string]struct{}, len(req.Lines))
	for _, reqLine := range req.Lines {
		if _, dup := seen[reqLine.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate line %s", reqLine.ID))
		}
		seen[reqLine.ID] = struct{}{}

		line, ok := byID[reqLine.ID]
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("line %s not found in batch", reqLine.ID))
		}
		if line.Status != models.LineStatusApproved {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("line %s is not approved", reqLine.ID))
		}
		if reqLine.ReturnedQuantity < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("returned quantity for line %s must not be negative", reqLine.ID))
		}
	}

	for _, reqLine := range req.Lines {
		line := byID[reqLine.ID]
		if err := s.repo.MarkReturned(ctx, line.ID, reqLine.ReturnedQuantity, adminID, returnedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("line %s was already returned", reqLine.ID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record return")
		}
		if reqLine.ReturnedQuantity > 0 {
			if _, err := s.stock.Release(ctx, line.ItemID, reqLine.ReturnedQuantity); err != nil {
				// Reopen the line so a retry can release the quantity; a
				// terminal line with unreleased stock would be unfixable.
				if reopenErr := s.repo.ReopenReturned(ctx, line.ID); reopenErr != nil {
					s.logger.Error("failed to reopen line after release failure",
						zap.String("line_id", line.ID), zap.Error(reopenErr))
				}
				return err
			}
		}
	}

	s.emitAudit(ctx, adminID, models.AuditActionBatchReturn, batch.ID, req.Lines)
	s.notify.Notify(ctx, DecisionEvent{
		Action:  models.AuditActionBatchReturn,
		BatchID: batch.ID,
		ActorID: adminID,
	})
	return nil
}

func (s *ApprovalService) loadBatch(ctx context.Context, batchID string) (*models.RequestBatch, []models.RequestLine, error) {
	if batchID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "batch_id is required")
	}
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	lines, err := s.repo.LinesByBatch(ctx, batch.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch lines")
	}
	return batch, lines, nil
}

func (s *ApprovalService) emitAudit(ctx context.Context, actorID, action, batchID string, detail interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(detail)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "request_batch",
		ResourceID: &batchID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// parseLedgerDate interprets a calendar date as UTC start of day.
func parseLedgerDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
