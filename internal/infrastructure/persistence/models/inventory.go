package models

import (
	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryItemModel is the persistence model for the InventoryItem aggregate root
type InventoryItemModel struct {
	TenantAggregateModel
	Name              string          `gorm:"type:varchar(200);not null;index"`
	Description       string          `gorm:"type:text"`
	Category          string          `gorm:"type:varchar(100);index"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableQuantity int64           `gorm:"not null;default:0;check:available_quantity >= 0"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return &inventory.InventoryItem{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		Description:         m.Description,
		Category:            m.Category,
		UnitPrice:           m.UnitPrice,
		AvailableQuantity:   m.AvailableQuantity,
	}
}

// FromDomain populates the model from a domain InventoryItem
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.Name = i.Name
	m.Description = i.Description
	m.Category = i.Category
	m.UnitPrice = i.UnitPrice
	m.AvailableQuantity = i.AvailableQuantity
}

// InventoryItemModelFromDomain creates a new InventoryItemModel from a domain InventoryItem
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}

// AllModels lists every model in migration order
func AllModels() []any {
	return []any{
		&ProfileModel{},
		&ClientModel{},
		&InventoryItemModel{},
		&InvoiceModel{},
		&LineItemModel{},
		&OutboxEntryModel{},
	}
}
