package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
)

type stockStore interface {
	GetByID(ctx context.Context, id string) (*models.Item, error)
	ReserveStock(ctx context.Context, id string, qty int) (int, error)
	ReleaseStock(ctx context.Context, id string, qty int) (int, error)
}

// StockService is the single writer of available quantities. Reserve and
// Release delegate to conditional single-statement updates, so concurrent
// calls on the same item serialize in the database while disjoint items
// proceed independently.
type StockService struct {
	items  stockStore
	logger *zap.Logger
}

// NewStockService constructs the service.
func NewStockService(items stockStore, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{items: items, logger: logger}
}

// Reserve decrements available stock for an item. Fails with
// INSUFFICIENT_STOCK when the item holds less than qty, leaving the counter
// untouched.
func (s *StockService) Reserve(ctx context.Context, itemID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "reserve quantity must be positive")
	}
	remaining, err := s.items.ReserveStock(ctx, itemID, qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, lookupErr := s.items.GetByID(ctx, itemID); lookupErr != nil {
				if errors.Is(lookupErr, sql.ErrNoRows) {
					return 0, appErrors.Clone(appErrors.ErrNotFound, "item not found")
				}
				return 0, appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
			}
			return 0, appErrors.ErrInsufficientStock
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve stock")
	}
	return remaining, nil
}

// Release returns stock to an item. No upper bound applies; short returns
// and over-returns are reconciled outside this ledger.
func (s *StockService) Release(ctx context.Context, itemID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "release quantity must be positive")
	}
	remaining, err := s.items.ReleaseStock(ctx, itemID, qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release stock")
	}
	return remaining, nil
}
