package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stockroom-api/internal/dto"
	"github.com/noah-isme/stockroom-api/internal/models"
	"github.com/noah-isme/stockroom-api/internal/repository"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
)

type catalogStoreStub struct {
	items  map[string]*models.Item
	nextID int
}

func newCatalogStoreStub() *catalogStoreStub {
	return &catalogStoreStub{items: make(map[string]*models.Item)}
}

func (s *catalogStoreStub) Create(ctx context.Context, item *models.Item) error {
	s.nextID++
	item.ID = fmt.Sprintf("item-%d", s.nextID)
	s.items[item.ID] = item
	return nil
}

func (s *catalogStoreStub) GetByID(ctx context.Context, id string) (*models.Item, error) {
	if item, ok := s.items[id]; ok {
		copy := *item
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *catalogStoreStub) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	result := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, *item)
	}
	return result, len(result), nil
}

func (s *catalogStoreStub) Update(ctx context.Context, id string, params repository.UpdateItemParams) (*models.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if params.Name != nil {
		item.Name = *params.Name
	}
	if params.Restricted != nil {
		item.Restricted = *params.Restricted
	}
	if params.Active != nil {
		item.Active = *params.Active
	}
	copy := *item
	return &copy, nil
}

func TestCatalogServiceCreate(t *testing.T) {
	store := newCatalogStoreStub()
	audit := &auditStub{}
	svc := NewCatalogService(store, audit, nil)

	item, err := svc.Create(context.Background(), dto.CreateItemRequest{
		Name:              "multimeter",
		Kind:              "borrow",
		AvailableQuantity: 4,
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ItemKindBorrow, item.Kind)
	require.True(t, item.Active)
	require.Equal(t, 4, item.AvailableQuantity)
	require.Len(t, audit.logs, 1)
}

func TestCatalogServiceCreateBadKind(t *testing.T) {
	svc := NewCatalogService(newCatalogStoreStub(), &auditStub{}, nil)

	_, err := svc.Create(context.Background(), dto.CreateItemRequest{Name: "multimeter", Kind: "RENTAL"}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceCreateNegativeQuantity(t *testing.T) {
	svc := NewCatalogService(newCatalogStoreStub(), &auditStub{}, nil)

	_, err := svc.Create(context.Background(), dto.CreateItemRequest{
		Name:              "multimeter",
		Kind:              "BORROW",
		AvailableQuantity: -1,
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceUpdate(t *testing.T) {
	store := newCatalogStoreStub()
	store.items["item-1"] = &models.Item{ID: "item-1", Name: "multimeter", Kind: models.ItemKindBorrow, Active: true}
	svc := NewCatalogService(store, &auditStub{}, nil)

	restricted := true
	item, err := svc.Update(context.Background(), "item-1", dto.UpdateItemRequest{Restricted: &restricted}, "admin-1")
	require.NoError(t, err)
	require.True(t, item.Restricted)
	require.Equal(t, "multimeter", item.Name)
}

func TestCatalogServiceUpdateUnknownItem(t *testing.T) {
	svc := NewCatalogService(newCatalogStoreStub(), &auditStub{}, nil)

	active := false
	_, err := svc.Update(context.Background(), "missing", dto.UpdateItemRequest{Active: &active}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceListPagination(t *testing.T) {
	store := newCatalogStoreStub()
	store.items["item-1"] = &models.Item{ID: "item-1", Name: "multimeter"}
	svc := NewCatalogService(store, &auditStub{}, nil)

	items, pagination, err := svc.List(context.Background(), models.ItemFilter{Page: 0, PageSize: 0})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 50, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}
