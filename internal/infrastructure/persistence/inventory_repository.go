package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an inventory item by ID within the actor's tenant
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	err := scoped(r.db.WithContext(ctx), actor, &models.InventoryItemModel{}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the inventory items among ids; unknown IDs are skipped
func (r *GormInventoryItemRepository) FindByIDs(ctx context.Context, actor shared.AuthContext, ids []uuid.UUID) ([]inventory.InventoryItem, error) {
	if len(ids) == 0 {
		return []inventory.InventoryItem{}, nil
	}
	var rows []models.InventoryItemModel
	if err := scoped(r.db.WithContext(ctx), actor, &models.InventoryItemModel{}).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return inventoryItemsToDomain(rows), nil
}

// FindAll lists inventory items with search, category filter and pagination
func (r *GormInventoryItemRepository) FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]inventory.InventoryItem, error) {
	query := r.applyFilter(scoped(r.db.WithContext(ctx), actor, &models.InventoryItemModel{}), filter)
	query = paginate(query, filter, InventorySortFields, "name")

	var rows []models.InventoryItemModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return inventoryItemsToDomain(rows), nil
}

// Count counts inventory items matching the filter
func (r *GormInventoryItemRepository) Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(scoped(r.db.WithContext(ctx), actor, &models.InventoryItemModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an inventory item
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	model := models.InventoryItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// Decrement subtracts quantity with a guarded UPDATE so concurrent callers
// can never drive available_quantity below zero.
func (r *GormInventoryItemRepository) Decrement(ctx context.Context, actor shared.AuthContext, id uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	result := scoped(r.db.WithContext(ctx), actor, &models.InventoryItemModel{}).
		Where("id = ? AND available_quantity >= ?", id, quantity).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", quantity),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Guard failed: tell missing rows apart from short stock
	current, err := r.FindByID(ctx, actor, id)
	if err != nil {
		return err
	}
	return shared.NewDomainError("INSUFFICIENT_STOCK",
		fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", current.Name, quantity, current.AvailableQuantity))
}

// Restore adds quantity back to an item
func (r *GormInventoryItemRepository) Restore(ctx context.Context, actor shared.AuthContext, id uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	result := scoped(r.db.WithContext(ctx), actor, &models.InventoryItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", quantity),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormInventoryItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = searchAny(query, filter.Search, "name", "description", "category")
	for key, value := range filter.Filters {
		switch key {
		case "category":
			query = query.Where("category = ?", value)
		case "in_stock":
			if inStock, ok := value.(bool); ok && inStock {
				query = query.Where("available_quantity > 0")
			}
		}
	}
	return query
}

func inventoryItemsToDomain(rows []models.InventoryItemModel) []inventory.InventoryItem {
	items := make([]inventory.InventoryItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items
}

// Ensure GormInventoryItemRepository implements InventoryItemRepository
var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
