package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stockroom-api/internal/middleware"
	"github.com/noah-isme/stockroom-api/internal/models"
)

type requestQueryServiceMock struct {
	lines      []models.RequestLine
	listErr    error
	lastFilter models.RequestLineFilter
	lastActor  *models.JWTClaims
}

func (m *requestQueryServiceMock) List(ctx context.Context, filter models.RequestLineFilter, actor *models.JWTClaims) ([]models.RequestLine, error) {
	m.lastFilter = filter
	m.lastActor = actor
	return m.lines, m.listErr
}

func (m *requestQueryServiceMock) GetBatch(ctx context.Context, batchID string, actor *models.JWTClaims) (*models.RequestBatch, []models.RequestLine, error) {
	m.lastActor = actor
	return &models.RequestBatch{ID: batchID}, m.lines, nil
}

func queryContext(t *testing.T, w *httptest.ResponseRecorder, rawQuery string, claims *models.JWTClaims) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/requests?"+rawQuery, nil)
	require.NoError(t, err)
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c
}

func TestRequestHandlerListParsesFilter(t *testing.T) {
	mockSvc := &requestQueryServiceMock{}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c := queryContext(t, w, "status=pending,approved&kind=borrow&from=2026-08-01&to=2026-08-31", adminClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.LineStatus{models.LineStatusPending, models.LineStatusApproved}, mockSvc.lastFilter.Status)
	assert.Equal(t, models.ItemKindBorrow, mockSvc.lastFilter.Kind)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *mockSvc.lastFilter.From)
	// The upper bound includes the named day in full.
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *mockSvc.lastFilter.To)
}

func TestRequestHandlerListBadDate(t *testing.T) {
	handler := NewRequestHandler(&requestQueryServiceMock{})

	w := httptest.NewRecorder()
	c := queryContext(t, w, "from=01-08-2026", adminClaims())

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerListMissingClaims(t *testing.T) {
	handler := NewRequestHandler(&requestQueryServiceMock{})

	w := httptest.NewRecorder()
	c := queryContext(t, w, "", nil)

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestHandlerMinePinsRequester(t *testing.T) {
	mockSvc := &requestQueryServiceMock{}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	// Even an admin asking for someone else only sees their own lines here.
	c := queryContext(t, w, "requester_id=user-9", adminClaims())

	handler.Mine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", mockSvc.lastFilter.RequesterID)
}

func TestRequestHandlerGetBatch(t *testing.T) {
	mockSvc := &requestQueryServiceMock{lines: []models.RequestLine{{ID: "line-1"}}}
	handler := NewRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c := queryContext(t, w, "", userClaims())
	c.Params = gin.Params{{Key: "id", Value: "batch-1"}}

	handler.GetBatch(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "batch-1")
	assert.Contains(t, w.Body.String(), "line-1")
	assert.Equal(t, "user-1", mockSvc.lastActor.UserID)
}
