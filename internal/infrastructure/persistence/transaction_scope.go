package persistence

import (
	"context"

	appinvoice "github.com/erp/invoicing/internal/application/invoice"
	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Repositories handed to the callback share one *gorm.DB transaction.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox func(tx *gorm.DB) shared.EventPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// WithOutbox binds an event publisher to each transaction, so events written
// through it commit or roll back with the rest of the work
func (s *GormTransactionScope) WithOutbox(bind func(tx *gorm.DB) shared.EventPublisher) *GormTransactionScope {
	s.outbox = bind
	return s
}

// Execute runs fn inside a transaction; any error rolls everything back
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinvoice.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox func(tx *gorm.DB) shared.EventPublisher
}

func (r *gormTransactionalRepositories) Invoices() invoice.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Inventory() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) Outbox() shared.EventPublisher {
	if r.outbox == nil {
		return nil
	}
	return r.outbox(r.tx)
}

var _ appinvoice.TransactionScope = (*GormTransactionScope)(nil)
var _ appinvoice.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
