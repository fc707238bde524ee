package inventory

import (
	"context"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
)

// InventoryItemRepository defines persistence for inventory items.
// Every method is scoped by the caller's AuthContext.
type InventoryItemRepository interface {
	FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*InventoryItem, error)

	// FindByIDs returns the items that exist; missing IDs are skipped
	FindByIDs(ctx context.Context, actor shared.AuthContext, ids []uuid.UUID) ([]InventoryItem, error)

	FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]InventoryItem, error)
	Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error)

	Save(ctx context.Context, item *InventoryItem) error

	// Decrement subtracts quantity only if at least that much is available.
	// Returns ErrInsufficientStock when the guard fails and ErrNotFound when the item is missing.
	Decrement(ctx context.Context, actor shared.AuthContext, id uuid.UUID, quantity int64) error

	// Restore adds quantity back; used to compensate a failed submission
	Restore(ctx context.Context, actor shared.AuthContext, id uuid.UUID, quantity int64) error
}
