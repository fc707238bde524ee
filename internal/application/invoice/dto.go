package invoice

import (
	"time"

	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// CreateInvoiceRequest represents a request to create an invoice with its line items.
// Line fields are validated by the editor rules rather than binding tags so the
// caller gets the same notifications the editor raises.
type CreateInvoiceRequest struct {
	ClientID      uuid.UUID       `json:"client_id"`
	InvoiceNumber string          `json:"invoice_number" binding:"omitempty,max=50"`
	IssueDate     time.Time       `json:"issue_date" binding:"required"`
	DueDate       *time.Time      `json:"due_date"`
	Notes         string          `json:"notes" binding:"max=5000"`
	Status        string          `json:"status" binding:"omitempty,oneof=draft pending paid overdue"`
	Items         []LineItemInput `json:"items" binding:"required,min=1,max=100"`

	// IdempotencyKey comes from the Idempotency-Key header, never the body
	IdempotencyKey string `json:"-"`
}

// LineItemInput is one submitted line. Description and unit price default
// to the inventory item's name and price when left empty.
type LineItemInput struct {
	InventoryItemID *uuid.UUID       `json:"inventory_item_id"`
	Description     string           `json:"description" binding:"max=500"`
	Quantity        int64            `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
}

// UpdateInvoiceRequest edits the invoice header. Line items are immutable.
type UpdateInvoiceRequest struct {
	ClientID  *uuid.UUID `json:"client_id"`
	IssueDate *time.Time `json:"issue_date"`
	DueDate   *time.Time `json:"due_date"`
	Notes     *string    `json:"notes" binding:"omitempty,max=5000"`
	Status    *string    `json:"status" binding:"omitempty,oneof=draft pending paid overdue"`
	Version   *int       `json:"version"`
}

// PreviewInvoiceRequest replays an editor draft without writing anything
type PreviewInvoiceRequest struct {
	ClientID *uuid.UUID       `json:"client_id"`
	Lines    []LineDraftInput `json:"lines" binding:"max=100"`
}

// LineDraftInput is one line of an editor draft. Nil fields keep the editor default.
type LineDraftInput struct {
	InventoryItemID *uuid.UUID       `json:"inventory_item_id"`
	Quantity        *int64           `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	Search     string     `form:"search"`
	ClientID   string     `form:"client_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=draft pending paid overdue"`
	IssuedFrom *time.Time `form:"issued_from" time_format:"2006-01-02"`
	IssuedTo   *time.Time `form:"issued_to" time_format:"2006-01-02"`
	Mine       bool       `form:"mine"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ==================== Responses ====================

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	TenantID      uuid.UUID          `json:"tenant_id"`
	ClientID      uuid.UUID          `json:"client_id"`
	InvoiceNumber string             `json:"invoice_number"`
	IssueDate     time.Time          `json:"issue_date"`
	DueDate       *time.Time         `json:"due_date,omitempty"`
	Notes         string             `json:"notes"`
	Status        string             `json:"status"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TaxAmount     decimal.Decimal    `json:"tax_amount"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Items         []LineItemResponse `json:"items,omitempty"`
	CreatedBy     *uuid.UUID         `json:"created_by,omitempty"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Description     string          `json:"description"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EditorStateResponse is the editor after a preview replay
type EditorStateResponse struct {
	Lines       []LineDraftResponse `json:"lines"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	TaxAmount   decimal.Decimal     `json:"tax_amount"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Warnings    []Notification      `json:"warnings"`
	Valid       bool                `json:"valid"`
	Error       *Notification       `json:"error,omitempty"`
}

// LineDraftResponse is one editor line
type LineDraftResponse struct {
	InventoryItemID   *uuid.UUID      `json:"inventory_item_id,omitempty"`
	Description       string          `json:"description"`
	Quantity          int64           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LineTotal         decimal.Decimal `json:"line_total"`
	AvailableQuantity *int64          `json:"available_quantity,omitempty"`
}

// ToInvoiceResponse converts a domain invoice to a response
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID,
		TenantID:      inv.TenantID,
		ClientID:      inv.ClientID,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssueDate,
		Notes:         inv.Notes,
		Status:        string(inv.Status),
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		CreatedBy:     inv.CreatedBy,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if !inv.DueDate.IsZero() {
		due := inv.DueDate
		resp.DueDate = &due
	}
	if len(inv.Items) > 0 {
		resp.Items = ToLineItemResponses(inv.Items)
	}
	return resp
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []invoice.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i])
	}
	return responses
}

// ToLineItemResponses converts line items to responses
func ToLineItemResponses(items []invoice.LineItem) []LineItemResponse {
	responses := make([]LineItemResponse, len(items))
	for i, item := range items {
		responses[i] = LineItemResponse{
			ID:              item.ID,
			InvoiceID:       item.InvoiceID,
			InventoryItemID: item.InventoryItemID,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			LineTotal:       item.LineTotal,
			CreatedAt:       item.CreatedAt,
		}
	}
	return responses
}
