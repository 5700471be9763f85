package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stockroom-api/internal/models"
)

func newItemRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func itemRows(item *models.Item) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "kind", "available_quantity", "restricted", "active", "created_at", "updated_at"}).
		AddRow(item.ID, item.Name, item.Kind, item.AvailableQuantity, item.Restricted, item.Active, time.Now(), time.Now())
}

func TestItemRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO items")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.Item{Name: "multimeter", Kind: models.ItemKindBorrow, AvailableQuantity: 4, Active: true}
	require.NoError(t, repo.Create(context.Background(), item))
	require.NotEmpty(t, item.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind, available_quantity")).
		WithArgs(item.ID).
		WillReturnRows(itemRows(item))

	found, err := repo.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, found.ID)
	require.Equal(t, 4, found.AvailableQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind, available_quantity")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestItemRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM items")).
		WithArgs(models.ItemKindBorrow, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind, available_quantity")).
		WithArgs(models.ItemKindBorrow, true).
		WillReturnRows(itemRows(&models.Item{ID: "item-1", Name: "multimeter", Kind: models.ItemKindBorrow, Active: true}))

	active := true
	items, total, err := repo.List(context.Background(), models.ItemFilter{Kind: models.ItemKindBorrow, Active: &active})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	name := "oscilloscope"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE items SET")).
		WithArgs("item-1", sqlmock.AnyArg(), name).
		WillReturnRows(itemRows(&models.Item{ID: "item-1", Name: name, Kind: models.ItemKindBorrow, Active: true}))

	item, err := repo.Update(context.Background(), "item-1", UpdateItemParams{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, item.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	active := false
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE items SET")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "missing", UpdateItemParams{Active: &active})
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestItemRepositoryReserveStock(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SET available_quantity = available_quantity - $2")).
		WithArgs("item-1", 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"available_quantity"}).AddRow(2))

	remaining, err := repo.ReserveStock(context.Background(), "item-1", 3)
	require.NoError(t, err)
	require.Equal(t, 2, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryReserveStockGuardFails(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	// The conditional update matches no row when stock is short.
	mock.ExpectQuery(regexp.QuoteMeta("SET available_quantity = available_quantity - $2")).
		WithArgs("item-1", 10, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"available_quantity"}))

	_, err := repo.ReserveStock(context.Background(), "item-1", 10)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryReleaseStock(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SET available_quantity = available_quantity + $2")).
		WithArgs("item-1", 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"available_quantity"}).AddRow(7))

	remaining, err := repo.ReleaseStock(context.Background(), "item-1", 2)
	require.NoError(t, err)
	require.Equal(t, 7, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}
