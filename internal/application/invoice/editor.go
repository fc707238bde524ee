package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EditorState is the lifecycle of one editor session
type EditorState string

const (
	EditorStateClosed     EditorState = "closed"
	EditorStateOpen       EditorState = "open"
	EditorStateValidating EditorState = "validating"
	EditorStateSubmitting EditorState = "submitting"
)

// NotificationLevel classifies an editor notification
type NotificationLevel string

const (
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a message the editor raises for the user
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

const (
	msgSelectClient     = "Please select a client"
	msgInvalidLineItems = "Please complete every line item with an inventory item, a description, a positive quantity and a positive unit price"
	placeholderLineText = "Previous subtotal"
)

// LineDraft is one editable line. Available is a snapshot of the bound
// item's stock taken when the item was selected.
type LineDraft struct {
	InventoryItemID *uuid.UUID
	ItemName        string
	Available       int64
	Description     string
	Quantity        int64
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
}

// Bound reports whether the line references an inventory item
func (l *LineDraft) Bound() bool {
	return l.InventoryItemID != nil
}

func (l *LineDraft) recompute() {
	l.LineTotal = shared.LineAmount(l.Quantity, l.UnitPrice)
}

func newBlankLine() *LineDraft {
	l := &LineDraft{Quantity: 1, UnitPrice: decimal.Zero}
	l.recompute()
	return l
}

// Totals is the derived invoice amounts
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// EditorSubmitter receives the editor's result
type EditorSubmitter interface {
	Create(ctx context.Context, actor shared.AuthContext, req CreateInvoiceRequest) (*InvoiceResponse, error)
	UpdateHeader(ctx context.Context, actor shared.AuthContext, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error)
}

// Editor holds the state of one invoice form session.
// It is not safe for concurrent use.
type Editor struct {
	state   EditorState
	editing *uuid.UUID
	version int

	ClientID      uuid.UUID
	InvoiceNumber string
	IssueDate     time.Time
	DueDate       time.Time
	Notes         string
	Status        invoice.InvoiceStatus

	lines  []*LineDraft
	errors []Notification
}

// NewEditor returns a closed editor
func NewEditor() *Editor {
	return &Editor{state: EditorStateClosed}
}

// State returns the session state
func (e *Editor) State() EditorState {
	return e.state
}

// IsEditing reports whether the session edits an existing invoice
func (e *Editor) IsEditing() bool {
	return e.editing != nil
}

// Errors returns the notifications raised by the last failed submit
func (e *Editor) Errors() []Notification {
	return e.errors
}

// Open starts a session. A nil invoice resets to a blank form; otherwise the
// header is prefilled and one unbound placeholder line stands in for the
// invoice's prior subtotal. Existing line items are not loaded.
func (e *Editor) Open(inv *invoice.Invoice) {
	e.state = EditorStateOpen
	e.errors = nil

	if inv == nil {
		e.editing = nil
		e.version = 0
		e.ClientID = uuid.Nil
		e.InvoiceNumber = ""
		e.IssueDate = time.Now()
		e.DueDate = time.Time{}
		e.Notes = ""
		e.Status = invoice.InvoiceStatusDraft
		e.lines = []*LineDraft{newBlankLine()}
		return
	}

	id := inv.ID
	e.editing = &id
	e.version = inv.Version
	e.ClientID = inv.ClientID
	e.InvoiceNumber = inv.InvoiceNumber
	e.IssueDate = inv.IssueDate
	e.DueDate = inv.DueDate
	e.Notes = inv.Notes
	e.Status = inv.Status

	placeholder := &LineDraft{
		Description: placeholderLineText,
		Quantity:    1,
		UnitPrice:   inv.Subtotal,
	}
	placeholder.recompute()
	e.lines = []*LineDraft{placeholder}
}

// Close ends the session
func (e *Editor) Close() {
	e.state = EditorStateClosed
}

// Lines returns the current lines in order
func (e *Editor) Lines() []*LineDraft {
	return e.lines
}

// Line returns the line at index, or nil when out of range
func (e *Editor) Line(index int) *LineDraft {
	if index < 0 || index >= len(e.lines) {
		return nil
	}
	return e.lines[index]
}

// AddLine appends a blank line and returns its index
func (e *Editor) AddLine() int {
	e.lines = append(e.lines, newBlankLine())
	return len(e.lines) - 1
}

// RemoveLine deletes a line. The last remaining line cannot be removed.
func (e *Editor) RemoveLine(index int) bool {
	if len(e.lines) <= 1 || index < 0 || index >= len(e.lines) {
		return false
	}
	e.lines = append(e.lines[:index], e.lines[index+1:]...)
	return true
}

// SelectInventoryItem binds an item to a line, copying its name and price.
// The current quantity is kept unless it exceeds the item's stock.
func (e *Editor) SelectInventoryItem(index int, item *inventory.InventoryItem) error {
	line := e.Line(index)
	if line == nil {
		return shared.NewDomainError("INVALID_LINE", fmt.Sprintf("No line at position %d", index+1))
	}
	if item == nil {
		return shared.NewDomainError("INVALID_LINE", fmt.Sprintf("No inventory item selected for line %d", index+1))
	}
	id := item.ID
	line.InventoryItemID = &id
	line.ItemName = item.Name
	line.Available = item.AvailableQuantity
	line.Description = item.Name
	line.UnitPrice = item.UnitPrice
	line.Quantity = min(line.Quantity, item.AvailableQuantity)
	line.recompute()
	return nil
}

// EditQuantity sets a line's quantity. On a bound line a request above the
// available stock is clamped and a warning naming the item and cap is returned.
func (e *Editor) EditQuantity(index int, quantity int64) *Notification {
	line := e.Line(index)
	if line == nil {
		return nil
	}
	var warning *Notification
	if line.Bound() && quantity > line.Available {
		warning = &Notification{
			Level:   NotificationWarning,
			Message: fmt.Sprintf("Only %d units of %s available", line.Available, line.ItemName),
		}
		quantity = line.Available
	}
	line.Quantity = quantity
	line.recompute()
	return warning
}

// EditUnitPrice sets a line's unit price without bounds
func (e *Editor) EditUnitPrice(index int, price decimal.Decimal) {
	line := e.Line(index)
	if line == nil {
		return
	}
	line.UnitPrice = price
	line.recompute()
}

// EditDescription overrides the description copied at selection
func (e *Editor) EditDescription(index int, description string) {
	if line := e.Line(index); line != nil {
		line.Description = description
	}
}

// restoreLine rebuilds a submitted line exactly as sent, without clamping,
// so Validate judges what the caller actually asked for
func (e *Editor) restoreLine(index int, item *inventory.InventoryItem, description string, quantity int64, unitPrice decimal.Decimal) {
	line := e.lines[index]
	if item != nil {
		id := item.ID
		line.InventoryItemID = &id
		line.ItemName = item.Name
		line.Available = item.AvailableQuantity
	}
	line.Description = description
	line.Quantity = quantity
	line.UnitPrice = unitPrice
	line.recompute()
}

// Totals sums the line totals. Tax is always zero.
func (e *Editor) Totals() Totals {
	subtotal := decimal.Zero
	for _, line := range e.lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	subtotal = shared.RoundMoney(subtotal)
	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   decimal.Zero,
		TotalAmount: subtotal,
	}
}

// Validate checks a new invoice before submission. A stock violation names
// the offending item and counts every line bound to it; other line problems
// yield one generic message.
// Edits are header-only and skip line validation.
func (e *Editor) Validate() error {
	if e.ClientID == uuid.Nil {
		return shared.NewDomainError("INVALID_CLIENT", msgSelectClient)
	}
	if e.IsEditing() {
		return nil
	}
	requested := make(map[uuid.UUID]int64, len(e.lines))
	for _, line := range e.lines {
		if !line.Bound() ||
			strings.TrimSpace(line.Description) == "" ||
			line.Quantity <= 0 ||
			!shared.RoundMoney(line.UnitPrice).IsPositive() {
			return shared.NewDomainError("INVALID_LINE_ITEMS", msgInvalidLineItems)
		}
		// lines sharing an item draw on the same stock
		requested[*line.InventoryItemID] += line.Quantity
		if requested[*line.InventoryItemID] > line.Available {
			return shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Not enough stock for %s: only %d available", line.ItemName, line.Available))
		}
	}
	return nil
}

// Submit validates and hands the form to the submitter. On success the
// session closes; on failure it returns to open with the error recorded.
func (e *Editor) Submit(ctx context.Context, actor shared.AuthContext, submitter EditorSubmitter) (*InvoiceResponse, error) {
	if e.state != EditorStateOpen {
		return nil, shared.NewDomainError("INVALID_STATE", "Editor is not open")
	}

	e.state = EditorStateValidating
	if err := e.Validate(); err != nil {
		return nil, e.fail(err)
	}

	e.state = EditorStateSubmitting
	var (
		resp *InvoiceResponse
		err  error
	)
	if e.IsEditing() {
		resp, err = submitter.UpdateHeader(ctx, actor, *e.editing, e.updateRequest())
	} else {
		resp, err = submitter.Create(ctx, actor, e.createRequest())
	}
	if err != nil {
		return nil, e.fail(err)
	}

	e.errors = nil
	e.state = EditorStateClosed
	return resp, nil
}

func (e *Editor) fail(err error) error {
	e.errors = []Notification{{Level: NotificationError, Message: err.Error()}}
	e.state = EditorStateOpen
	return err
}

func (e *Editor) createRequest() CreateInvoiceRequest {
	req := CreateInvoiceRequest{
		ClientID:      e.ClientID,
		InvoiceNumber: e.InvoiceNumber,
		IssueDate:     e.IssueDate,
		Notes:         e.Notes,
		Status:        string(e.Status),
		Items:         make([]LineItemInput, len(e.lines)),
	}
	if !e.DueDate.IsZero() {
		due := e.DueDate
		req.DueDate = &due
	}
	for i, line := range e.lines {
		price := line.UnitPrice
		req.Items[i] = LineItemInput{
			InventoryItemID: line.InventoryItemID,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       &price,
		}
	}
	return req
}

func (e *Editor) updateRequest() UpdateInvoiceRequest {
	clientID := e.ClientID
	issue := e.IssueDate
	due := e.DueDate
	notes := e.Notes
	status := string(e.Status)
	version := e.version
	return UpdateInvoiceRequest{
		ClientID:  &clientID,
		IssueDate: &issue,
		DueDate:   &due,
		Notes:     &notes,
		Status:    &status,
		Version:   &version,
	}
}

// Snapshot renders the editor for API responses
func (e *Editor) Snapshot(warnings []Notification) EditorStateResponse {
	totals := e.Totals()
	resp := EditorStateResponse{
		Lines:       make([]LineDraftResponse, len(e.lines)),
		Subtotal:    totals.Subtotal,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.TotalAmount,
		Warnings:    warnings,
		Valid:       true,
	}
	if resp.Warnings == nil {
		resp.Warnings = []Notification{}
	}
	for i, line := range e.lines {
		lr := LineDraftResponse{
			InventoryItemID: line.InventoryItemID,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       line.LineTotal,
		}
		if line.Bound() {
			available := line.Available
			lr.AvailableQuantity = &available
		}
		resp.Lines[i] = lr
	}
	if err := e.Validate(); err != nil {
		resp.Valid = false
		resp.Error = &Notification{Level: NotificationError, Message: err.Error()}
	}
	return resp
}
