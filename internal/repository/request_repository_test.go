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

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "batch_id", "item_id", "item_name", "kind", "requested_quantity",
		"approved_quantity", "returned_quantity", "status", "requested_at",
		"decided_by", "decided_at", "return_due_at", "actual_return_at",
	})
}

func TestRequestRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_batches")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_lines")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_lines")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	batch := &models.RequestBatch{Kind: models.ItemKindBorrow, RequesterID: "user-1", ReturnDueAt: &due}
	lines := []models.RequestLine{
		{ItemID: "item-1", RequestedQuantity: 2},
		{ItemID: "item-2", RequestedQuantity: 1},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), batch, lines))
	require.NotEmpty(t, batch.ID)
	require.Equal(t, batch.ID, lines[0].BatchID)
	require.Equal(t, models.LineStatusPending, lines[0].Status)
	require.Equal(t, &due, lines[1].ReturnDueAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCreateBatchRollsBack(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_batches")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_lines")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	batch := &models.RequestBatch{Kind: models.ItemKindRequisition, RequesterID: "user-1"}
	err := repo.CreateBatch(context.Background(), batch, []models.RequestLine{{ItemID: "item-1", RequestedQuantity: 1}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryMarkApproved(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WithArgs("line-1", models.LineStatusApproved, 2, "admin-1", now, models.LineStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkApproved(context.Background(), "line-1", 2, "admin-1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryMarkApprovedAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	// The status guard matched nothing: someone else decided the line first.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkApproved(context.Background(), "line-1", 2, "admin-1", time.Now().UTC())
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRequestRepositoryRejectPending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WithArgs("batch-1", models.LineStatusNotApproved, "admin-1", now, models.LineStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 3))

	rows, err := repo.RejectPending(context.Background(), "batch-1", "admin-1", now)
	require.NoError(t, err)
	require.EqualValues(t, 3, rows)

	// A second reject touches nothing and that is fine.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows, err = repo.RejectPending(context.Background(), "batch-1", "admin-1", now)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryMarkReturnedRequiresApproved(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WithArgs("line-1", models.LineStatusReturned, 1, "admin-1", sqlmock.AnyArg(), models.LineStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkReturned(context.Background(), "line-1", 1, "admin-1", time.Now().UTC())
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRequestRepositoryReopenReturned(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WithArgs("line-1", models.LineStatusApproved, models.LineStatusReturned).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReopenReturned(context.Background(), "line-1"))

	// Only a returned line can be reopened.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE request_lines")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.ReopenReturned(context.Background(), "line-2")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	// List joins the batch for requester scoping, so the row carries an extra
	// requester_id column.
	scoped := sqlmock.NewRows([]string{
		"id", "batch_id", "item_id", "item_name", "kind", "requested_quantity",
		"approved_quantity", "returned_quantity", "status", "requested_at",
		"decided_by", "decided_at", "return_due_at", "actual_return_at", "requester_id",
	}).AddRow("line-1", "batch-1", "item-1", "multimeter", models.ItemKindBorrow, 2,
		nil, nil, models.LineStatusPending, time.Now(), nil, nil, nil, nil, "user-1")

	mock.ExpectQuery(regexp.QuoteMeta("JOIN request_batches b ON b.id = l.batch_id")).
		WithArgs("user-1", models.LineStatusPending, models.LineStatusApproved).
		WillReturnRows(scoped)

	lines, err := repo.List(context.Background(), models.RequestLineFilter{
		RequesterID: "user-1",
		Status:      []models.LineStatus{models.LineStatusPending, models.LineStatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "user-1", lines[0].RequesterID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryLinesByBatch(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := lineRows()
	rows.AddRow("line-1", "batch-1", "item-1", "multimeter", models.ItemKindBorrow, 2,
		nil, nil, models.LineStatusPending, time.Now(), nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM request_lines l JOIN items i ON i.id = l.item_id")).
		WithArgs("batch-1").
		WillReturnRows(rows)

	lines, err := repo.LinesByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "multimeter", lines[0].ItemName)
}

func TestRequestRepositorySummary(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"status", "kind", "total"}).
		AddRow(models.LineStatusApproved, models.ItemKindBorrow, 3).
		AddRow(models.LineStatusApproved, models.ItemKindRequisition, 2).
		AddRow(models.LineStatusPending, models.ItemKindBorrow, 1)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status, kind")).
		WillReturnRows(rows)

	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, summary.CountsByStatus[models.LineStatusApproved])
	require.Equal(t, 4, summary.CountsByKind[models.ItemKindBorrow])
	require.Equal(t, 3, summary.OutstandingLoans)
	require.NoError(t, mock.ExpectationsWereMet())
}
