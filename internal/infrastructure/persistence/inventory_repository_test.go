package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGormInventoryItemRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	actor := newActor()
	ctx := context.Background()

	item := seedItem(t, db, actor, "Steel Beam", "100.00", 5)

	t.Run("finds item in tenant", func(t *testing.T) {
		found, err := repo.FindByID(ctx, actor, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Steel Beam", found.Name)
		assert.Equal(t, int64(5), found.AvailableQuantity)
		assert.True(t, found.UnitPrice.Equal(decimal.NewFromInt(100)))
	})

	t.Run("hides item from other tenants", func(t *testing.T) {
		_, err := repo.FindByID(ctx, newActor(), item.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		_, err := repo.FindByID(ctx, shared.AuthContext{}, item.ID)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestGormInventoryItemRepository_FindAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	actor := newActor()
	ctx := context.Background()

	seedItem(t, db, actor, "Steel Beam", "100", 5)
	seedItem(t, db, actor, "Copper Pipe", "12.5", 40)
	seedItem(t, db, newActor(), "Steel Rod", "9", 3)

	filter := shared.DefaultFilter()
	filter.Search = "STEEL"
	items, err := repo.FindAll(ctx, actor, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Steel Beam", items[0].Name)

	count, err := repo.Count(ctx, actor, shared.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	byIDs, err := repo.FindByIDs(ctx, actor, []uuid.UUID{items[0].ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
}

func TestGormInventoryItemRepository_Decrement(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements available stock", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormInventoryItemRepository(db)
		actor := newActor()
		item := seedItem(t, db, actor, "Steel Beam", "100", 5)

		require.NoError(t, repo.Decrement(ctx, actor, item.ID, 3))

		found, err := repo.FindByID(ctx, actor, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.AvailableQuantity)
		assert.Equal(t, item.Version+1, found.Version)
	})

	t.Run("refuses to go below zero", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormInventoryItemRepository(db)
		actor := newActor()
		item := seedItem(t, db, actor, "Steel Beam", "100", 5)

		err := repo.Decrement(ctx, actor, item.ID, 6)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "Steel Beam")

		found, err := repo.FindByID(ctx, actor, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), found.AvailableQuantity)
	})

	t.Run("reports missing item", func(t *testing.T) {
		db := newTestDB(t)
		err := NewGormInventoryItemRepository(db).Decrement(ctx, newActor(), uuid.New(), 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("concurrent decrements never oversell", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormInventoryItemRepository(db)
		actor := newActor()
		item := seedItem(t, db, actor, "Steel Beam", "100", 5)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := repo.Decrement(ctx, actor, item.ID, 1); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, succeeded)
		found, err := repo.FindByID(ctx, actor, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), found.AvailableQuantity)
	})
}

func TestGormInventoryItemRepository_Restore(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	actor := newActor()
	ctx := context.Background()
	item := seedItem(t, db, actor, "Steel Beam", "100", 5)

	require.NoError(t, repo.Decrement(ctx, actor, item.ID, 5))
	require.NoError(t, repo.Restore(ctx, actor, item.ID, 2))

	found, err := repo.FindByID(ctx, actor, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.AvailableQuantity)

	assert.ErrorIs(t, repo.Restore(ctx, actor, uuid.New(), 1), shared.ErrNotFound)
}

func TestGormInventoryItemRepository_Decrement_GuardedSQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	repo := NewGormInventoryItemRepository(gormDB)
	actor := newActor()
	itemID := uuid.New()

	mock.ExpectExec(`UPDATE "inventory_items" SET .*available_quantity - .*WHERE tenant_id = .*available_quantity >= `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Decrement(context.Background(), actor, itemID, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
