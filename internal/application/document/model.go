package document

import (
	"time"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/partner"
)

const dateLayout = "Jan 2, 2006"

// InvoiceDocument is the print model of one invoice. Amounts are preformatted
// so every output engine renders identical text.
type InvoiceDocument struct {
	CompanyName   string
	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string
	Client        PartyBlock
	Lines         []DocumentLine
	Subtotal      string
	TaxAmount     string
	TotalAmount   string
	Notes         string
	GeneratedAt   time.Time
}

// PartyBlock is the bill-to address block
type PartyBlock struct {
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Address     string
}

// DocumentLine is one printed line item
type DocumentLine struct {
	Description string
	Quantity    int64
	UnitPrice   string
	LineTotal   string
}

// BuildInvoiceDocument assembles the print model
func BuildInvoiceDocument(companyName string, inv *invoice.Invoice, client *partner.Client, money *browser.Renderer, now time.Time) *InvoiceDocument {
	doc := &InvoiceDocument{
		CompanyName:   companyName,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate.Format(dateLayout),
		Subtotal:      money.FormatMoney(inv.Subtotal),
		TaxAmount:     money.FormatMoney(inv.TaxAmount),
		TotalAmount:   money.FormatMoney(inv.TotalAmount),
		Notes:         inv.Notes,
		GeneratedAt:   now,
		Lines:         make([]DocumentLine, 0, len(inv.Items)),
	}
	if !inv.DueDate.IsZero() {
		doc.DueDate = inv.DueDate.Format(dateLayout)
	}
	if client != nil {
		doc.Client = PartyBlock{
			CompanyName: client.CompanyName,
			ContactName: client.ContactName,
			Email:       client.Email,
			Phone:       client.Phone,
			Address:     client.Address,
		}
	}
	for _, line := range inv.Items {
		doc.Lines = append(doc.Lines, DocumentLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   money.FormatMoney(line.UnitPrice),
			LineTotal:   money.FormatMoney(line.LineTotal),
		})
	}
	return doc
}
