package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceConfig holds the invoice service settings
type ServiceConfig struct {
	NumberPrefix   string
	IdempotencyTTL time.Duration
	SweepBatchSize int
}

// DefaultServiceConfig returns the defaults used when config is absent
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		NumberPrefix:   "INV",
		IdempotencyTTL: 24 * time.Hour,
		SweepBatchSize: 500,
	}
}

// InvoiceService handles invoice submission, header edits and queries
type InvoiceService struct {
	invoiceRepo    invoice.InvoiceRepository
	inventoryRepo  inventory.InventoryItemRepository
	clientRepo     partner.ClientRepository
	submitter      Submitter
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	metrics        *telemetry.InvoiceMetrics
	logger         *zap.Logger
	config         ServiceConfig
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoice.InvoiceRepository,
	inventoryRepo inventory.InventoryItemRepository,
	clientRepo partner.ClientRepository,
	submitter Submitter,
	logger *zap.Logger,
	config ServiceConfig,
) *InvoiceService {
	if config.NumberPrefix == "" {
		config.NumberPrefix = "INV"
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 500
	}
	return &InvoiceService{
		invoiceRepo:   invoiceRepo,
		inventoryRepo: inventoryRepo,
		clientRepo:    clientRepo,
		submitter:     submitter,
		logger:        logger,
		config:        config,
	}
}

// SetEventPublisher sets the publisher used after successful writes
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key handling on Create
func (s *InvoiceService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetInvoiceMetrics sets the business metrics collector
func (s *InvoiceService) SetInvoiceMetrics(m *telemetry.InvoiceMetrics) {
	s.metrics = m
}

// Create validates the request with the editor rules and submits the invoice,
// its line items and the stock decrements as one unit
func (s *InvoiceService) Create(ctx context.Context, actor shared.AuthContext, req CreateInvoiceRequest) (resp *InvoiceResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := idempotencyKey(actor, req.IdempotencyKey)
		claimed, claimErr := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL)
		if claimErr != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", claimErr)
		}
		if !claimed {
			return nil, shared.ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if releaseErr := s.idempotency.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("key", key),
					zap.Error(releaseErr),
				)
			}
		}()
	}

	inv, err := s.buildInvoice(ctx, actor, req)
	if err != nil {
		s.metrics.RecordSubmissionFailed(ctx, actor.TenantID, failureReason(err))
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber,
		telemetry.SpanAttrClientID, inv.ClientID.String(),
		telemetry.SpanAttrItemCount, inv.ItemCount(),
	)

	stockEvents, err := s.submitter.Submit(ctx, actor, inv)
	if err != nil {
		s.metrics.RecordSubmissionFailed(ctx, actor.TenantID, failureReason(err))
		s.logger.Error("invoice submission failed",
			zap.String("tenant_id", actor.TenantID.String()),
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordInvoiceCreated(ctx, actor.TenantID, inv.TotalAmount, inv.ItemCount())
	s.publish(ctx, append(inv.GetDomainEvents(), stockEvents...))
	inv.ClearDomainEvents()

	s.logger.Info("invoice created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.TotalAmount.StringFixed(2)),
	)

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// buildInvoice replays the request through an editor, validates it and
// assembles the finalized aggregate
func (s *InvoiceService) buildInvoice(ctx context.Context, actor shared.AuthContext, req CreateInvoiceRequest) (*invoice.Invoice, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_LINE_ITEMS", msgInvalidLineItems)
	}

	items, err := s.loadItems(ctx, actor, req.Items)
	if err != nil {
		return nil, err
	}

	editor := NewEditor()
	editor.Open(nil)
	editor.ClientID = req.ClientID
	for i, in := range req.Items {
		if i > 0 {
			editor.AddLine()
		}
		var item *inventory.InventoryItem
		if in.InventoryItemID != nil {
			item = items[*in.InventoryItemID]
		}
		description := in.Description
		price := editor.Line(i).UnitPrice
		if item != nil {
			if description == "" {
				description = item.Name
			}
			price = item.UnitPrice
		}
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		editor.restoreLine(i, item, description, in.Quantity, price)
	}
	if err := editor.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.clientRepo.ExistsByID(ctx, actor, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Selected client does not exist")
	}

	number, err := s.resolveNumber(ctx, actor, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}

	var due time.Time
	if req.DueDate != nil {
		due = *req.DueDate
	}
	inv, err := invoice.NewInvoice(actor, number, req.ClientID, req.IssueDate, due)
	if err != nil {
		return nil, err
	}
	inv.SetNotes(req.Notes)
	if req.Status != "" {
		if err := inv.SetInitialStatus(invoice.InvoiceStatus(req.Status)); err != nil {
			return nil, err
		}
	}
	for _, line := range editor.Lines() {
		if _, err := inv.AddItem(*line.InventoryItemID, line.Description, line.Quantity, line.UnitPrice); err != nil {
			return nil, err
		}
	}
	if err := inv.Finalize(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvoiceService) loadItems(ctx context.Context, actor shared.AuthContext, inputs []LineItemInput) (map[uuid.UUID]*inventory.InventoryItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		if in.InventoryItemID == nil || seen[*in.InventoryItemID] {
			continue
		}
		seen[*in.InventoryItemID] = true
		ids = append(ids, *in.InventoryItemID)
	}
	byID := make(map[uuid.UUID]*inventory.InventoryItem, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	found, err := s.inventoryRepo.FindByIDs(ctx, actor, ids)
	if err != nil {
		return nil, err
	}
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	return byID, nil
}

func (s *InvoiceService) resolveNumber(ctx context.Context, actor shared.AuthContext, requested string) (string, error) {
	if requested == "" {
		return s.invoiceRepo.GenerateInvoiceNumber(ctx, actor, s.config.NumberPrefix)
	}
	exists, err := s.invoiceRepo.ExistsByNumber(ctx, actor, requested)
	if err != nil {
		return "", err
	}
	if exists {
		return "", shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Invoice number %s is already in use", requested))
	}
	return requested, nil
}

// UpdateHeader edits client, dates, notes and status. Line items, amounts
// and stock are never touched by an edit.
func (s *InvoiceService) UpdateHeader(ctx context.Context, actor shared.AuthContext, id uuid.UUID, req UpdateInvoiceRequest) (resp *InvoiceResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update_header")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	inv, err := s.invoiceRepo.FindByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != inv.Version {
		return nil, shared.ErrConcurrencyConflict
	}

	clientID, issue, due, notes := inv.ClientID, inv.IssueDate, inv.DueDate, inv.Notes
	if req.ClientID != nil {
		clientID = *req.ClientID
	}
	if req.IssueDate != nil {
		issue = *req.IssueDate
	}
	if req.DueDate != nil {
		due = *req.DueDate
	}
	if req.Notes != nil {
		notes = *req.Notes
	}
	if clientID != inv.ClientID {
		exists, err := s.clientRepo.ExistsByID(ctx, actor, clientID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, shared.NewDomainError("INVALID_CLIENT", "Selected client does not exist")
		}
	}

	if err := inv.UpdateHeader(clientID, issue, due, notes); err != nil {
		return nil, err
	}
	if req.Status != nil {
		if err := inv.TransitionTo(invoice.InvoiceStatus(*req.Status)); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.publish(ctx, inv.GetDomainEvents())
	inv.ClearDomainEvents()

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// Get returns an invoice with its line items
func (s *InvoiceService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDWithItems(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// GetItems returns an invoice's line items
func (s *InvoiceService) GetItems(ctx context.Context, actor shared.AuthContext, id uuid.UUID) ([]LineItemResponse, error) {
	inv, err := s.invoiceRepo.FindByIDWithItems(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return ToLineItemResponses(inv.Items), nil
}

// List returns a page of invoice headers and the total match count
func (s *InvoiceService) List(ctx context.Context, actor shared.AuthContext, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	if filter.ClientID != "" {
		clientID, err := uuid.Parse(filter.ClientID)
		if err != nil {
			return nil, 0, shared.NewDomainError("INVALID_CLIENT", "Client ID must be a UUID")
		}
		domainFilter.Filters["client_id"] = clientID
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.IssuedFrom != nil {
		domainFilter.Filters["issued_from"] = *filter.IssuedFrom
	}
	if filter.IssuedTo != nil {
		domainFilter.Filters["issued_to"] = *filter.IssuedTo
	}
	if filter.Mine {
		domainFilter.Filters["created_by"] = actor.UserID
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, actor, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, actor, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceResponses(invoices), total, nil
}

// Preview replays a draft through the editor: items are selected, prices
// and quantities applied in that order, and clamping warnings collected.
// Nothing is written.
func (s *InvoiceService) Preview(ctx context.Context, actor shared.AuthContext, req PreviewInvoiceRequest) (*EditorStateResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	editor := NewEditor()
	editor.Open(nil)
	if req.ClientID != nil {
		editor.ClientID = *req.ClientID
	}

	var warnings []Notification
	for i, in := range req.Lines {
		if i > 0 {
			editor.AddLine()
		}
		if in.InventoryItemID != nil {
			item, err := s.inventoryRepo.FindByID(ctx, actor, *in.InventoryItemID)
			if err != nil {
				return nil, err
			}
			if err := editor.SelectInventoryItem(i, item); err != nil {
				return nil, err
			}
		}
		if in.UnitPrice != nil {
			editor.EditUnitPrice(i, *in.UnitPrice)
		}
		if in.Quantity != nil {
			if w := editor.EditQuantity(i, *in.Quantity); w != nil {
				warnings = append(warnings, *w)
			}
		}
	}

	state := editor.Snapshot(warnings)
	return &state, nil
}

// OpenEditor opens an editor prefilled from an existing invoice
func (s *InvoiceService) OpenEditor(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*Editor, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	editor := NewEditor()
	editor.Open(inv)
	return editor, nil
}

// OverdueSweepResult summarizes one MarkOverdue pass
type OverdueSweepResult struct {
	Found   int       `json:"found"`
	Marked  int       `json:"marked"`
	Failed  int       `json:"failed"`
	SweptAt time.Time `json:"swept_at"`
}

// MarkOverdue moves pending invoices of every tenant whose due date has
// passed to overdue. One batch per call; the scheduler calls it repeatedly.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (*OverdueSweepResult, error) {
	result := &OverdueSweepResult{SweptAt: now}

	pastDue, err := s.invoiceRepo.FindPastDue(ctx, now, s.config.SweepBatchSize)
	if err != nil {
		s.logger.Error("Failed to find past-due invoices", zap.Error(err))
		return nil, err
	}
	result.Found = len(pastDue)
	if result.Found == 0 {
		return result, nil
	}

	for i := range pastDue {
		inv := &pastDue[i]
		if err := inv.MarkOverdue(now); err != nil {
			result.Failed++
			continue
		}
		if err := s.invoiceRepo.Update(ctx, inv); err != nil {
			result.Failed++
			s.logger.Warn("Failed to mark invoice overdue",
				zap.String("tenant_id", inv.TenantID.String()),
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Marked++
		s.publish(ctx, inv.GetDomainEvents())
		inv.ClearDomainEvents()
	}

	s.metrics.RecordOverdueMarked(ctx, int64(result.Marked))
	s.logger.Info("Overdue sweep completed",
		zap.Int("found", result.Found),
		zap.Int("marked", result.Marked),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// publish sends events; failures are logged and never fail the operation
// because the write has already committed
func (s *InvoiceService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish invoice events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

func idempotencyKey(actor shared.AuthContext, key string) string {
	return "invoice:create:" + actor.TenantID.String() + ":" + key
}

// failureReason maps an error to a low-cardinality metric label
func failureReason(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}

var _ EditorSubmitter = (*InvoiceService)(nil)
