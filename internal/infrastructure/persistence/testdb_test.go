package persistence

import (
	"testing"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the schema migrated
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func newActor() shared.AuthContext {
	return shared.NewAuthContext(uuid.New(), uuid.New(), "tester")
}

func seedItem(t *testing.T, db *gorm.DB, actor shared.AuthContext, name string, price string, qty int64) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(actor, name, decimal.RequireFromString(price), qty)
	require.NoError(t, err)
	require.NoError(t, NewGormInventoryItemRepository(db).Save(t.Context(), item))
	return item
}

func seedClient(t *testing.T, db *gorm.DB, actor shared.AuthContext, company string) *partner.Client {
	t.Helper()
	client, err := partner.NewClient(actor, company)
	require.NoError(t, err)
	require.NoError(t, NewGormClientRepository(db).Save(t.Context(), client))
	return client
}
