package invoice

import (
	"context"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
)

// TransactionScope provides transactional access to the repositories an
// invoice submission writes to. All repository operations performed inside
// Execute are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current transaction
type TransactionalRepositories interface {
	Invoices() invoice.InvoiceRepository
	Inventory() inventory.InventoryItemRepository
	// Outbox stages events in the same transaction. Nil when events are
	// published after commit instead.
	Outbox() shared.EventPublisher
}

// NoOpTransactionScope runs the callback against plain repositories.
// Used in tests and by the saga submitter, which compensates instead.
type NoOpTransactionScope struct {
	invoiceRepo   invoice.InvoiceRepository
	inventoryRepo inventory.InventoryItemRepository
	outbox        shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(invoiceRepo invoice.InvoiceRepository, inventoryRepo inventory.InventoryItemRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo:   invoiceRepo,
		inventoryRepo: inventoryRepo,
	}
}

// WithOutbox makes Outbox return publisher
func (s *NoOpTransactionScope) WithOutbox(publisher shared.EventPublisher) *NoOpTransactionScope {
	s.outbox = publisher
	return s
}

// Execute runs fn without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Invoices() invoice.InvoiceRepository {
	return s.invoiceRepo
}

func (s *NoOpTransactionScope) Inventory() inventory.InventoryItemRepository {
	return s.inventoryRepo
}

func (s *NoOpTransactionScope) Outbox() shared.EventPublisher {
	return s.outbox
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
