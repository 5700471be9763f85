package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stockroom-api/internal/models"
)

const lineColumns = `l.id, l.batch_id, l.item_id, i.name AS item_name, l.kind, l.requested_quantity,
       l.approved_quantity, l.returned_quantity, l.status, l.requested_at, l.decided_by, l.decided_at,
       l.return_due_at, l.actual_return_at`

// RequestRepository persists request batches and their ledger lines.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateBatch inserts a batch together with its lines in one transaction so
// a cart is never stored half-written.
func (r *RequestRepository) CreateBatch(ctx context.Context, batch *models.RequestBatch, lines []models.RequestLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("create batch: no lines")
	}
	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	batch.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create batch: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const batchQuery = `INSERT INTO request_batches (id, kind, requester_id, delivery_method, address, purpose, return_due_at, created_at)
	VALUES (:id, :kind, :requester_id, :delivery_method, :address, :purpose, :return_due_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, batchQuery, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	const lineQuery = `INSERT INTO request_lines (id, batch_id, item_id, kind, requested_quantity, status, requested_at, return_due_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i := range lines {
		line := &lines[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		line.BatchID = batch.ID
		line.Kind = batch.Kind
		line.Status = models.LineStatusPending
		line.RequestedAt = now
		line.ReturnDueAt = batch.ReturnDueAt
		if _, err := tx.ExecContext(ctx, lineQuery,
			line.ID, line.BatchID, line.ItemID, line.Kind, line.RequestedQuantity,
			line.Status, line.RequestedAt, line.ReturnDueAt); err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create batch: %w", err)
	}
	commit = true
	return nil
}

// GetBatch fetches a batch by identifier.
func (r *RequestRepository) GetBatch(ctx context.Context, id string) (*models.RequestBatch, error) {
	const query = `SELECT id, kind, requester_id, delivery_method, address, purpose, return_due_at, created_at
	FROM request_batches WHERE id = $1`
	var batch models.RequestBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

// LinesByBatch returns every line of a batch.
func (r *RequestRepository) LinesByBatch(ctx context.Context, batchID string) ([]models.RequestLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM request_lines l JOIN items i ON i.id = l.item_id
	WHERE l.batch_id = $1 ORDER BY l.requested_at ASC, l.id ASC`, lineColumns)
	var lines []models.RequestLine
	if err := r.db.SelectContext(ctx, &lines, query, batchID); err != nil {
		return nil, fmt.Errorf("lines by batch: %w", err)
	}
	return lines, nil
}

// MarkApproved commits the approval decision for a single pending line.
// The status guard makes the transition race-safe: a second admin deciding
// the same line sees zero rows and gets sql.ErrNoRows.
func (r *RequestRepository) MarkApproved(ctx context.Context, lineID string, qty int, decidedBy string, decidedAt time.Time) error {
	const query = `UPDATE request_lines
	SET status = $2, approved_quantity = $3, decided_by = $4, decided_at = $5
	WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, lineID, models.LineStatusApproved, qty, decidedBy, decidedAt, models.LineStatusPending)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	return requireRow(result, "mark approved")
}

// RejectPending moves every pending line of a batch to NOT_APPROVED and
// reports how many lines changed. Zero is not an error; rejecting an
// already-decided batch is a no-op.
func (r *RequestRepository) RejectPending(ctx context.Context, batchID, decidedBy string, decidedAt time.Time) (int64, error) {
	const query = `UPDATE request_lines
	SET status = $2, decided_by = $3, decided_at = $4
	WHERE batch_id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, batchID, models.LineStatusNotApproved, decidedBy, decidedAt, models.LineStatusPending)
	if err != nil {
		return 0, fmt.Errorf("reject pending: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reject pending rows: %w", err)
	}
	return rows, nil
}

// MarkReturned closes an approved borrow line with the returned quantity.
func (r *RequestRepository) MarkReturned(ctx context.Context, lineID string, qty int, decidedBy string, returnedAt time.Time) error {
	const query = `UPDATE request_lines
	SET status = $2, returned_quantity = $3, decided_by = $4, actual_return_at = $5
	WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, lineID, models.LineStatusReturned, qty, decidedBy, returnedAt, models.LineStatusApproved)
	if err != nil {
		return fmt.Errorf("mark returned: %w", err)
	}
	return requireRow(result, "mark returned")
}

// ReopenReturned reverts a just-returned line to APPROVED so the return can
// be retried after a failed stock release.
func (r *RequestRepository) ReopenReturned(ctx context.Context, lineID string) error {
	const query = `UPDATE request_lines
	SET status = $2, returned_quantity = NULL, actual_return_at = NULL
	WHERE id = $1 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, lineID, models.LineStatusApproved, models.LineStatusReturned)
	if err != nil {
		return fmt.Errorf("reopen returned: %w", err)
	}
	return requireRow(result, "reopen returned")
}

// List returns ledger lines matching the filter (latest first).
func (r *RequestRepository) List(ctx context.Context, filter models.RequestLineFilter) ([]models.RequestLine, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(fmt.Sprintf(`SELECT %s, b.requester_id AS requester_id FROM request_lines l
	JOIN items i ON i.id = l.item_id
	JOIN request_batches b ON b.id = l.batch_id`, lineColumns))

	conditions := make([]string, 0, 6)
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("b.requester_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("l.batch_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("l.kind = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("l.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("l.requested_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("l.requested_at < $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY l.requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var lines []models.RequestLine
	if err := r.db.SelectContext(ctx, &lines, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	return lines, nil
}

// Summary aggregates ledger counts for the reporting view.
func (r *RequestRepository) Summary(ctx context.Context) (*models.LedgerSummary, error) {
	const query = `SELECT status, kind, COUNT(*) AS total FROM request_lines GROUP BY status, kind`
	rows := []struct {
		Status models.LineStatus `db:"status"`
		Kind   models.ItemKind   `db:"kind"`
		Total  int               `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("ledger summary: %w", err)
	}
	summary := &models.LedgerSummary{
		GeneratedAt:    time.Now().UTC(),
		CountsByStatus: make(map[models.LineStatus]int),
		CountsByKind:   make(map[models.ItemKind]int),
	}
	for _, row := range rows {
		summary.CountsByStatus[row.Status] += row.Total
		summary.CountsByKind[row.Kind] += row.Total
		if row.Status == models.LineStatusApproved && row.Kind == models.ItemKindBorrow {
			summary.OutstandingLoans += row.Total
		}
	}
	return summary, nil
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
