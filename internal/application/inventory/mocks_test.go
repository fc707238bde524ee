package inventory

import (
	"context"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInventoryItemRepository is a mock implementation of InventoryItemRepository
type MockInventoryItemRepository struct {
	mock.Mock
}

func (m *MockInventoryItemRepository) FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindByIDs(ctx context.Context, actor shared.AuthContext, ids []uuid.UUID) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, actor, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, actor, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryItemRepository) Decrement(ctx context.Context, actor shared.AuthContext, id uuid.UUID, quantity int64) error {
	args := m.Called(ctx, actor, id, quantity)
	return args.Error(0)
}

func (m *MockInventoryItemRepository) Restore(ctx context.Context, actor shared.AuthContext, id uuid.UUID, quantity int64) error {
	args := m.Called(ctx, actor, id, quantity)
	return args.Error(0)
}

type MockStockAlertNotifier struct {
	mock.Mock
}

func (m *MockStockAlertNotifier) SendAlert(ctx context.Context, alert StockAlert) error {
	return m.Called(ctx, alert).Error(0)
}
