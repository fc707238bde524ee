package inventory

import (
	"fmt"
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stock-keeping catalog entry that invoices draw from.
// It is the aggregate root for stock operations.
type InventoryItem struct {
	shared.TenantAggregateRoot
	Name              string
	Description       string
	Category          string
	UnitPrice         decimal.Decimal
	AvailableQuantity int64
}

// NewInventoryItem creates a catalog entry with an opening stock level
func NewInventoryItem(actor shared.AuthContext, name string, unitPrice decimal.Decimal, quantity int64) (*InventoryItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot exceed 200 characters")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Available quantity cannot be negative")
	}

	item := &InventoryItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(actor),
		Name:                name,
		UnitPrice:           shared.RoundMoney(unitPrice),
		AvailableQuantity:   quantity,
	}
	item.AddDomainEvent(NewItemCreatedEvent(item))
	return item, nil
}

// SetDetails updates descriptive fields
func (i *InventoryItem) SetDetails(description, category string) {
	i.Description = strings.TrimSpace(description)
	i.Category = strings.TrimSpace(category)
	i.Touch()
}

// CanSupply reports whether quantity units can be taken from stock
func (i *InventoryItem) CanSupply(quantity int64) bool {
	return quantity > 0 && quantity <= i.AvailableQuantity
}

// Clamp caps a requested quantity at the available stock
func (i *InventoryItem) Clamp(quantity int64) int64 {
	if quantity > i.AvailableQuantity {
		return i.AvailableQuantity
	}
	return quantity
}

// Decrement takes quantity units out of stock
func (i *InventoryItem) Decrement(quantity int64, invoiceNumber string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity > i.AvailableQuantity {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", i.Name, quantity, i.AvailableQuantity))
	}

	i.AvailableQuantity -= quantity
	i.Touch()
	i.IncrementVersion()
	i.AddDomainEvent(NewStockDecrementedEvent(i, quantity, invoiceNumber))
	if i.AvailableQuantity == 0 {
		i.AddDomainEvent(NewStockDepletedEvent(i))
	}
	return nil
}

// Restore puts quantity units back into stock, undoing a Decrement
func (i *InventoryItem) Restore(quantity int64, invoiceNumber string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	i.AvailableQuantity += quantity
	i.Touch()
	i.IncrementVersion()
	i.AddDomainEvent(NewStockRestoredEvent(i, quantity, invoiceNumber))
	return nil
}
