package invoice

import (
	"context"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines persistence for invoices and their line items
type InvoiceRepository interface {
	// FindByID loads the invoice header without items
	FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*Invoice, error)

	// FindByIDWithItems loads the invoice with its line items
	FindByIDWithItems(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*Invoice, error)

	FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]Invoice, error)
	Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error)

	// FindPastDue returns pending invoices of every tenant whose due date is before now
	FindPastDue(ctx context.Context, now time.Time, limit int) ([]Invoice, error)

	// Save inserts the invoice header
	Save(ctx context.Context, inv *Invoice) error

	// SaveItems inserts the full batch of line items for an invoice in one statement
	SaveItems(ctx context.Context, actor shared.AuthContext, items []LineItem) error

	// Update writes header fields and status with an optimistic version check
	Update(ctx context.Context, inv *Invoice) error

	// Delete removes an invoice and its items; used to compensate a failed submission
	Delete(ctx context.Context, actor shared.AuthContext, id uuid.UUID) error

	ExistsByNumber(ctx context.Context, actor shared.AuthContext, invoiceNumber string) (bool, error)

	// GenerateInvoiceNumber returns the next number in the PREFIX-YYYY-NNNNN sequence
	GenerateInvoiceNumber(ctx context.Context, actor shared.AuthContext, prefix string) (string, error)
}
