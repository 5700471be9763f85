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

// ItemRepository provides database access to the item catalog and owns the
// stock quantity column.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository constructs the repository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new catalog item.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO items (id, name, kind, available_quantity, restricted, active, created_at, updated_at)
	VALUES (:id, :name, :kind, :available_quantity, :restricted, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// GetByID fetches a catalog item.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	const query = `SELECT id, name, kind, available_quantity, restricted, active, created_at, updated_at
	FROM items WHERE id = $1`
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// List returns catalog items matching the filter with a total count.
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	base := `FROM items WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	query := fmt.Sprintf(`SELECT id, name, kind, available_quantity, restricted, active, created_at, updated_at %s
	ORDER BY name ASC LIMIT %d OFFSET %d`, base, pageSize, (page-1)*pageSize)

	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return items, total, nil
}

// UpdateItemParams groups the editable catalog columns.
type UpdateItemParams struct {
	Name       *string
	Restricted *bool
	Active     *bool
}

// Update edits catalog metadata. Quantity is excluded on purpose; it moves
// only through ReserveStock and ReleaseStock.
func (r *ItemRepository) Update(ctx context.Context, id string, params UpdateItemParams) (*models.Item, error) {
	setParts := []string{"updated_at = $2"}
	args := []interface{}{id, time.Now().UTC()}
	if params.Name != nil {
		args = append(args, *params.Name)
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.Restricted != nil {
		args = append(args, *params.Restricted)
		setParts = append(setParts, fmt.Sprintf("restricted = $%d", len(args)))
	}
	if params.Active != nil {
		args = append(args, *params.Active)
		setParts = append(setParts, fmt.Sprintf("active = $%d", len(args)))
	}
	query := fmt.Sprintf(`UPDATE items SET %s WHERE id = $1
	RETURNING id, name, kind, available_quantity, restricted, active, created_at, updated_at`,
		strings.Join(setParts, ", "))
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return &item, nil
}

// ReserveStock decrements available quantity if and only if enough stock
// remains. The guard and the write are one statement, so concurrent
// reservations on the same row serialize inside the database and the counter
// can never go negative. Returns sql.ErrNoRows when the condition fails.
func (r *ItemRepository) ReserveStock(ctx context.Context, id string, qty int) (int, error) {
	const query = `UPDATE items
	SET available_quantity = available_quantity - $2, updated_at = $3
	WHERE id = $1 AND available_quantity >= $2
	RETURNING available_quantity`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, id, qty, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("reserve stock: %w", err)
	}
	return remaining, nil
}

// ReleaseStock increments available quantity. No ceiling is enforced; the
// system does not model a capacity maximum.
func (r *ItemRepository) ReleaseStock(ctx context.Context, id string, qty int) (int, error) {
	const query = `UPDATE items
	SET available_quantity = available_quantity + $2, updated_at = $3
	WHERE id = $1
	RETURNING available_quantity`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, id, qty, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("release stock: %w", err)
	}
	return remaining, nil
}
