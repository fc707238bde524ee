package invoice

import (
	"strings"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one row of an invoice: a quantity of an inventory item at a recorded price.
// Line items are written once with their invoice and never edited.
type LineItem struct {
	ID              uuid.UUID
	InvoiceID       uuid.UUID
	InventoryItemID uuid.UUID
	Description     string
	Quantity        int64
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
	CreatedAt       time.Time
}

// NewLineItem creates a line item. quantity must be positive, and so must
// unitPrice once rounded to storage precision.
func NewLineItem(invoiceID, inventoryItemID uuid.UUID, description string, quantity int64, unitPrice decimal.Decimal) (*LineItem, error) {
	if inventoryItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVENTORY_ITEM", "Line item must reference an inventory item")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line item description cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	price := shared.RoundMoney(unitPrice)
	if !price.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price must be positive")
	}

	return &LineItem{
		ID:              uuid.New(),
		InvoiceID:       invoiceID,
		InventoryItemID: inventoryItemID,
		Description:     description,
		Quantity:        quantity,
		UnitPrice:       price,
		LineTotal:       shared.LineAmount(quantity, price),
		CreatedAt:       time.Now(),
	}, nil
}
