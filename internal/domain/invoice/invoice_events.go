package invoice

import (
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeInvoice = "Invoice"

const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceUpdated       = "InvoiceUpdated"
	EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"
)

// InvoiceCreatedEvent is raised once the invoice, its items and the stock
// decrements have been committed
type InvoiceCreatedEvent struct {
	shared.EventHeader
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
}

func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		TotalAmount:   inv.TotalAmount,
		ItemCount:     len(inv.Items),
	}
}

// InvoiceUpdatedEvent is raised on a header edit
type InvoiceUpdatedEvent struct {
	shared.EventHeader
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      uuid.UUID `json:"client_id"`
}

func NewInvoiceUpdatedEvent(inv *Invoice) *InvoiceUpdatedEvent {
	return &InvoiceUpdatedEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoiceUpdated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
	}
}

// InvoiceStatusChangedEvent is raised on every status transition
type InvoiceStatusChangedEvent struct {
	shared.EventHeader
	InvoiceNumber string        `json:"invoice_number"`
	From          InvoiceStatus `json:"from"`
	To            InvoiceStatus `json:"to"`
}

func NewInvoiceStatusChangedEvent(inv *Invoice, from InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoiceStatusChanged, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber: inv.InvoiceNumber,
		From:          from,
		To:            inv.Status,
	}
}
