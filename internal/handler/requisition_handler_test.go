package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
)

type requisitionRequestServiceMock struct {
	createResp *dto.CreateBatchResponse
	createErr  error
	created    bool
}

func (m *requisitionRequestServiceMock) CreateRequisition(ctx context.Context, req dto.CreateRequisitionRequest, requesterID string) (*dto.CreateBatchResponse, error) {
	m.created = true
	return m.createResp, m.createErr
}

func TestRequisitionHandlerCreate(t *testing.T) {
	requests := &requisitionRequestServiceMock{createResp: &dto.CreateBatchResponse{BatchID: "batch-1"}}
	handler := NewRequisitionHandler(requests, &approvalServiceMock{})

	w := httptest.NewRecorder()
	c := jsonContext(t, w, http.MethodPost, "/requests/requisition", dto.CreateRequisitionRequest{
		Items:   []dto.CartLine{{ItemID: "item-1", Quantity: 2}},
		Purpose: "lab work",
	}, userClaims())

	handler.Create(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, requests.created)
	assert.Contains(t, w.Body.String(), "batch-1")
}

func TestRequisitionHandlerCreateOverAvailability(t *testing.T) {
	requests := &requisitionRequestServiceMock{createErr: appErrors.Clone(appErrors.ErrInsufficientStock, "item glue has only 2 available")}
	handler := NewRequisitionHandler(requests, &approvalServiceMock{})

	w := httptest.NewRecorder()
	c := jsonContext(t, w, http.MethodPost, "/requests/requisition", dto.CreateRequisitionRequest{
		Items:   []dto.CartLine{{ItemID: "item-1", Quantity: 5}},
		Purpose: "lab work",
	}, userClaims())

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_STOCK")
}

func TestRequisitionHandlerApprove(t *testing.T) {
	approvals := &approvalServiceMock{approveResp: &dto.ApproveBatchResponse{BatchID: "batch-1", Approved: []string{"line-1"}}}
	handler := NewRequisitionHandler(&requisitionRequestServiceMock{}, approvals)

	w := httptest.NewRecorder()
	c := jsonContext(t, w, http.MethodPut, "/requests/requisition/approve", dto.ApproveBatchRequest{
		BatchID: "batch-1",
		Lines:   []dto.ApproveLine{{ID: "line-1", ApprovedQuantity: 2}},
	}, adminClaims())

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, approvals.approved)
	assert.Equal(t, models.ItemKindRequisition, approvals.lastKind)
}

func TestRequisitionHandlerNotApproved(t *testing.T) {
	approvals := &approvalServiceMock{rejectRows: 1}
	handler := NewRequisitionHandler(&requisitionRequestServiceMock{}, approvals)

	w := httptest.NewRecorder()
	c := jsonContext(t, w, http.MethodPost, "/requests/requisition/notapproved", dto.RejectBatchRequest{BatchID: "batch-1"}, adminClaims())

	handler.NotApproved(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, approvals.rejected)
	assert.Contains(t, w.Body.String(), `"rejected":1`)
}

func TestRequisitionHandlerNotApprovedUnknownBatch(t *testing.T) {
	approvals := &approvalServiceMock{rejectErr: appErrors.Clone(appErrors.ErrNotFound, "batch not found")}
	handler := NewRequisitionHandler(&requisitionRequestServiceMock{}, approvals)

	w := httptest.NewRecorder()
	c := jsonContext(t, w, http.MethodPost, "/requests/requisition/notapproved", dto.RejectBatchRequest{BatchID: "missing"}, adminClaims())

	handler.NotApproved(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
