package models

import (
	"time"

	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	TenantAggregateModel
	ClientID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceNumber string                `gorm:"type:varchar(50);not null;index"`
	IssueDate     time.Time             `gorm:"not null"`
	DueDate       *time.Time            `gorm:"index"`
	Notes         string                `gorm:"type:text"`
	Status        invoice.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	Subtotal      decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Items         []LineItemModel       `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ClientID:            m.ClientID,
		InvoiceNumber:       m.InvoiceNumber,
		IssueDate:           m.IssueDate,
		Notes:               m.Notes,
		Status:              m.Status,
		Subtotal:            m.Subtotal,
		TaxAmount:           m.TaxAmount,
		TotalAmount:         m.TotalAmount,
		Items:               make([]invoice.LineItem, len(m.Items)),
	}
	if m.DueDate != nil {
		inv.DueDate = *m.DueDate
	}
	for i := range m.Items {
		inv.Items[i] = m.Items[i].ToDomain()
	}
	return inv
}

// FromDomain populates the header columns from a domain Invoice; items are saved separately
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.ClientID = inv.ClientID
	m.InvoiceNumber = inv.InvoiceNumber
	m.IssueDate = inv.IssueDate
	m.DueDate = nil
	if !inv.DueDate.IsZero() {
		due := inv.DueDate
		m.DueDate = &due
	}
	m.Notes = inv.Notes
	m.Status = inv.Status
	m.Subtotal = inv.Subtotal
	m.TaxAmount = inv.TaxAmount
	m.TotalAmount = inv.TotalAmount
}

// InvoiceModelFromDomain creates a new InvoiceModel from a domain Invoice
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// LineItemModel is the persistence model for an invoice line item.
// Tenant and creator are denormalised so the record browser can scope the table directly.
type LineItemModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid;index"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description     string          `gorm:"type:varchar(200);not null"`
	Quantity        int64           `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain LineItem
func (m *LineItemModel) ToDomain() invoice.LineItem {
	return invoice.LineItem{
		ID:              m.ID,
		InvoiceID:       m.InvoiceID,
		InventoryItemID: m.InventoryItemID,
		Description:     m.Description,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		LineTotal:       m.LineTotal,
		CreatedAt:       m.CreatedAt,
	}
}

// LineItemModelFromDomain creates a LineItemModel stamped with the actor's tenant and user
func LineItemModelFromDomain(item *invoice.LineItem, actor shared.AuthContext) *LineItemModel {
	m := &LineItemModel{
		ID:              item.ID,
		TenantID:        actor.TenantID,
		InvoiceID:       item.InvoiceID,
		InventoryItemID: item.InventoryItemID,
		Description:     item.Description,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		LineTotal:       item.LineTotal,
		CreatedAt:       item.CreatedAt,
	}
	if actor.UserID != uuid.Nil {
		userID := actor.UserID
		m.CreatedBy = &userID
	}
	return m
}
