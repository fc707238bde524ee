package invoice

import (
	"context"
	"fmt"
	"slices"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Submitter persists a finalized invoice: header, then the line-item batch,
// then one guarded stock decrement per line. Either all three take effect or
// none do. The returned events describe the stock changes and are meant to be
// published after Submit returns. A submitter that already stored the events
// durably returns none and clears the invoice's pending events.
type Submitter interface {
	Submit(ctx context.Context, actor shared.AuthContext, inv *invoice.Invoice) ([]shared.DomainEvent, error)
}

// TransactionalSubmitter writes everything inside one database transaction
type TransactionalSubmitter struct {
	scope TransactionScope
}

// NewTransactionalSubmitter creates a TransactionalSubmitter
func NewTransactionalSubmitter(scope TransactionScope) *TransactionalSubmitter {
	return &TransactionalSubmitter{scope: scope}
}

// Submit runs the three writes in a transaction; any failure rolls all of them back.
// When the scope has an outbox, the invoice and stock events are written to it
// in the same transaction and nothing is returned for later publishing.
func (s *TransactionalSubmitter) Submit(ctx context.Context, actor shared.AuthContext, inv *invoice.Invoice) ([]shared.DomainEvent, error) {
	var (
		events []shared.DomainEvent
		staged bool
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		events, staged = events[:0], false
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if err := repos.Invoices().SaveItems(ctx, actor, inv.Items); err != nil {
			return fmt.Errorf("save line items: %w", err)
		}
		for _, line := range inv.Items {
			evts, err := decrementLine(ctx, actor, repos.Inventory(), inv.InvoiceNumber, line)
			if err != nil {
				return err
			}
			events = append(events, evts...)
		}

		outbox := repos.Outbox()
		if outbox == nil {
			return nil
		}
		pending := append(slices.Clone(inv.GetDomainEvents()), events...)
		if err := outbox.Publish(ctx, pending...); err != nil {
			return fmt.Errorf("stage events: %w", err)
		}
		staged = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if staged {
		inv.ClearDomainEvents()
		return nil, nil
	}
	return events, nil
}

// decrementLine takes a line's quantity out of stock and builds the matching events
func decrementLine(ctx context.Context, actor shared.AuthContext, repo inventory.InventoryItemRepository, invoiceNumber string, line invoice.LineItem) ([]shared.DomainEvent, error) {
	if line.Quantity <= 0 {
		return nil, nil
	}
	if err := repo.Decrement(ctx, actor, line.InventoryItemID, line.Quantity); err != nil {
		return nil, err
	}
	return stockEvents(ctx, actor, repo, invoiceNumber, line)
}

// stockEvents reloads a decremented item so the events carry the remaining stock
func stockEvents(ctx context.Context, actor shared.AuthContext, repo inventory.InventoryItemRepository, invoiceNumber string, line invoice.LineItem) ([]shared.DomainEvent, error) {
	item, err := repo.FindByID(ctx, actor, line.InventoryItemID)
	if err != nil {
		return nil, fmt.Errorf("reload inventory item %s: %w", line.InventoryItemID, err)
	}
	telemetry.AddEvent(telemetry.SpanFromContext(ctx), "stock_decremented",
		telemetry.SpanAttrInventoryItemID, item.ID.String(),
		telemetry.SpanAttrQuantity, line.Quantity,
	)
	events := []shared.DomainEvent{inventory.NewStockDecrementedEvent(item, line.Quantity, invoiceNumber)}
	if item.AvailableQuantity == 0 {
		events = append(events, inventory.NewStockDepletedEvent(item))
	}
	return events, nil
}

var _ Submitter = (*TransactionalSubmitter)(nil)

// SagaSubmitter performs the same writes without a shared transaction.
// Each completed step registers a compensation; on failure the compensations
// run in reverse order.
type SagaSubmitter struct {
	invoiceRepo   invoice.InvoiceRepository
	inventoryRepo inventory.InventoryItemRepository
	logger        *zap.Logger
}

// NewSagaSubmitter creates a SagaSubmitter
func NewSagaSubmitter(invoiceRepo invoice.InvoiceRepository, inventoryRepo inventory.InventoryItemRepository, logger *zap.Logger) *SagaSubmitter {
	return &SagaSubmitter{
		invoiceRepo:   invoiceRepo,
		inventoryRepo: inventoryRepo,
		logger:        logger,
	}
}

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// Submit runs the steps one by one, compensating on failure
func (s *SagaSubmitter) Submit(ctx context.Context, actor shared.AuthContext, inv *invoice.Invoice) ([]shared.DomainEvent, error) {
	var (
		compensations []compensation
		events        []shared.DomainEvent
	)

	fail := func(step string, err error) ([]shared.DomainEvent, error) {
		s.logger.Error("invoice submission step failed",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("step", step),
			zap.Error(err),
		)
		s.compensate(ctx, inv, compensations)
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return fail("save_invoice", fmt.Errorf("save invoice: %w", err))
	}
	// Delete removes the items too, so one compensation covers both inserts
	compensations = append(compensations, compensation{
		name: "delete_invoice",
		undo: func(ctx context.Context) error {
			return s.invoiceRepo.Delete(ctx, actor, inv.ID)
		},
	})

	if err := s.invoiceRepo.SaveItems(ctx, actor, inv.Items); err != nil {
		return fail("save_line_items", fmt.Errorf("save line items: %w", err))
	}

	for _, line := range inv.Items {
		if line.Quantity <= 0 {
			continue
		}
		itemID, qty := line.InventoryItemID, line.Quantity
		if err := s.inventoryRepo.Decrement(ctx, actor, itemID, qty); err != nil {
			return fail("decrement_stock", err)
		}
		compensations = append(compensations, compensation{
			name: "restore_stock:" + itemID.String(),
			undo: func(ctx context.Context) error {
				return s.inventoryRepo.Restore(ctx, actor, itemID, qty)
			},
		})
		evts, err := stockEvents(ctx, actor, s.inventoryRepo, inv.InvoiceNumber, line)
		if err != nil {
			return fail("reload_stock", err)
		}
		events = append(events, evts...)
	}

	return events, nil
}

// compensate undoes completed steps newest first. Failures are logged and
// do not stop the remaining compensations.
func (s *SagaSubmitter) compensate(ctx context.Context, inv *invoice.Invoice, compensations []compensation) {
	if len(compensations) == 0 {
		return
	}
	// the request context may already be cancelled
	ctx = context.WithoutCancel(ctx)

	failed := 0
	for i := len(compensations) - 1; i >= 0; i-- {
		c := compensations[i]
		if err := c.undo(ctx); err != nil {
			failed++
			s.logger.Error("compensation failed",
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.String("compensation", c.name),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("compensation completed",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int("total", len(compensations)),
		zap.Int("failed", failed),
	)
}

var _ Submitter = (*SagaSubmitter)(nil)
