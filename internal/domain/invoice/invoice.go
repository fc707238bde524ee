package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// IsValid checks if the status is known
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can move to target.
// Paid is terminal.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusPending || target == InvoiceStatusPaid
	case InvoiceStatusPending:
		return target == InvoiceStatusPaid || target == InvoiceStatusOverdue || target == InvoiceStatusDraft
	case InvoiceStatusOverdue:
		return target == InvoiceStatusPaid
	}
	return false
}

// Invoice is the aggregate root for billing a client.
// Subtotal is the sum of line totals, tax is always zero and total equals subtotal.
type Invoice struct {
	shared.TenantAggregateRoot
	ClientID      uuid.UUID
	InvoiceNumber string
	IssueDate     time.Time
	DueDate       time.Time
	Notes         string
	Status        InvoiceStatus
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	Items         []LineItem
}

// NewInvoice creates an invoice header without line items
func NewInvoice(actor shared.AuthContext, invoiceNumber string, clientID uuid.UUID, issueDate, dueDate time.Time) (*Invoice, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if err := validateHeader(clientID, issueDate, dueDate); err != nil {
		return nil, err
	}

	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(actor),
		ClientID:            clientID,
		InvoiceNumber:       invoiceNumber,
		IssueDate:           issueDate,
		DueDate:             dueDate,
		Status:              InvoiceStatusDraft,
		Subtotal:            decimal.Zero,
		TaxAmount:           decimal.Zero,
		TotalAmount:         decimal.Zero,
		Items:               make([]LineItem, 0),
	}, nil
}

func validateHeader(clientID uuid.UUID, issueDate, dueDate time.Time) error {
	if clientID == uuid.Nil {
		return shared.NewDomainError("INVALID_CLIENT", "Please select a client")
	}
	if issueDate.IsZero() {
		return shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if !dueDate.IsZero() && dueDate.Before(issueDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	return nil
}

// AddItem appends a line sourced from an inventory item and recalculates totals
func (i *Invoice) AddItem(inventoryItemID uuid.UUID, description string, quantity int64, unitPrice decimal.Decimal) (*LineItem, error) {
	item, err := NewLineItem(i.ID, inventoryItemID, description, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	i.Items = append(i.Items, *item)
	i.recalculateTotals()
	return item, nil
}

// SetNotes sets the free-text notes
func (i *Invoice) SetNotes(notes string) {
	i.Notes = strings.TrimSpace(notes)
}

// SetInitialStatus sets the status of an invoice that has not been persisted yet
func (i *Invoice) SetInitialStatus(status InvoiceStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown invoice status: %s", status))
	}
	i.Status = status
	return nil
}

// Finalize checks the invoice is ready to persist and records the creation event
func (i *Invoice) Finalize() error {
	if len(i.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Invoice must have at least one line item")
	}
	i.recalculateTotals()
	i.AddDomainEvent(NewInvoiceCreatedEvent(i))
	return nil
}

// UpdateHeader edits the header of an existing invoice.
// Line items, amounts and stock are left untouched.
func (i *Invoice) UpdateHeader(clientID uuid.UUID, issueDate, dueDate time.Time, notes string) error {
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Paid invoices cannot be edited")
	}
	if err := validateHeader(clientID, issueDate, dueDate); err != nil {
		return err
	}
	i.ClientID = clientID
	i.IssueDate = issueDate
	i.DueDate = dueDate
	i.SetNotes(notes)
	i.Touch()
	i.AddDomainEvent(NewInvoiceUpdatedEvent(i))
	return nil
}

// TransitionTo moves the invoice to a new status
func (i *Invoice) TransitionTo(status InvoiceStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown invoice status: %s", status))
	}
	if i.Status == status {
		return nil
	}
	if !i.Status.CanTransitionTo(status) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change invoice status from %s to %s", i.Status, status))
	}
	from := i.Status
	i.Status = status
	i.Touch()
	i.AddDomainEvent(NewInvoiceStatusChangedEvent(i, from))
	return nil
}

// IsPastDue reports whether a pending invoice's due date is before now
func (i *Invoice) IsPastDue(now time.Time) bool {
	if i.Status != InvoiceStatusPending || i.DueDate.IsZero() {
		return false
	}
	return i.DueDate.Before(now)
}

// MarkOverdue moves a past-due pending invoice to overdue
func (i *Invoice) MarkOverdue(now time.Time) error {
	if !i.IsPastDue(now) {
		return shared.NewDomainError("INVALID_STATE", "Invoice is not past due")
	}
	return i.TransitionTo(InvoiceStatusOverdue)
}

// ItemCount returns the number of line items
func (i *Invoice) ItemCount() int {
	return len(i.Items)
}

// recalculateTotals keeps subtotal = Σ line totals, tax = 0, total = subtotal
func (i *Invoice) recalculateTotals() {
	i.Subtotal = SumLineTotals(i.Items)
	i.TaxAmount = decimal.Zero
	i.TotalAmount = i.Subtotal
}

// SumLineTotals adds up line totals
func SumLineTotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return shared.RoundMoney(total)
}
