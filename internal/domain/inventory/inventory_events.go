package inventory

import (
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeInventoryItem = "InventoryItem"

const (
	EventTypeItemCreated      = "InventoryItemCreated"
	EventTypeStockDecremented = "StockDecremented"
	EventTypeStockRestored    = "StockRestored"
	EventTypeStockDepleted    = "StockDepleted"
)

// ItemCreatedEvent is raised when a catalog entry is added
type ItemCreatedEvent struct {
	shared.EventHeader
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int64           `json:"quantity"`
}

func NewItemCreatedEvent(item *InventoryItem) *ItemCreatedEvent {
	return &ItemCreatedEvent{
		EventHeader:     shared.NewEventHeader(EventTypeItemCreated, AggregateTypeInventoryItem, item.ID, item.TenantID),
		InventoryItemID: item.ID,
		Name:            item.Name,
		UnitPrice:       item.UnitPrice,
		Quantity:        item.AvailableQuantity,
	}
}

// StockDecrementedEvent is raised when an invoice consumes stock
type StockDecrementedEvent struct {
	shared.EventHeader
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Quantity        int64     `json:"quantity"`
	Remaining       int64     `json:"remaining"`
	InvoiceNumber   string    `json:"invoice_number"`
}

func NewStockDecrementedEvent(item *InventoryItem, quantity int64, invoiceNumber string) *StockDecrementedEvent {
	return &StockDecrementedEvent{
		EventHeader:     shared.NewEventHeader(EventTypeStockDecremented, AggregateTypeInventoryItem, item.ID, item.TenantID),
		InventoryItemID: item.ID,
		Name:            item.Name,
		Quantity:        quantity,
		Remaining:       item.AvailableQuantity,
		InvoiceNumber:   invoiceNumber,
	}
}

// StockRestoredEvent is raised when a failed submission gives stock back
type StockRestoredEvent struct {
	shared.EventHeader
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Quantity        int64     `json:"quantity"`
	Remaining       int64     `json:"remaining"`
	InvoiceNumber   string    `json:"invoice_number"`
}

func NewStockRestoredEvent(item *InventoryItem, quantity int64, invoiceNumber string) *StockRestoredEvent {
	return &StockRestoredEvent{
		EventHeader:     shared.NewEventHeader(EventTypeStockRestored, AggregateTypeInventoryItem, item.ID, item.TenantID),
		InventoryItemID: item.ID,
		Quantity:        quantity,
		Remaining:       item.AvailableQuantity,
		InvoiceNumber:   invoiceNumber,
	}
}

// StockDepletedEvent is raised when available quantity reaches zero
type StockDepletedEvent struct {
	shared.EventHeader
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
}

func NewStockDepletedEvent(item *InventoryItem) *StockDepletedEvent {
	return &StockDepletedEvent{
		EventHeader:     shared.NewEventHeader(EventTypeStockDepleted, AggregateTypeInventoryItem, item.ID, item.TenantID),
		InventoryItemID: item.ID,
		Name:            item.Name,
	}
}
