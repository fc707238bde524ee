package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID loads an invoice header
func (r *GormInvoiceRepository) FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	err := scoped(r.db.WithContext(ctx), actor, &models.InvoiceModel{}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDWithItems loads an invoice with its line items in insertion order
func (r *GormInvoiceRepository) FindByIDWithItems(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	err := scoped(r.db.WithContext(ctx), actor, &models.InvoiceModel{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists invoice headers with filter and pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]invoice.Invoice, error) {
	query := r.applyFilter(scoped(r.db.WithContext(ctx), actor, &models.InvoiceModel{}), filter)
	query = paginate(query, filter, InvoiceSortFields, "created_at")

	var rows []models.InvoiceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(scoped(r.db.WithContext(ctx), actor, &models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindPastDue returns pending invoices across tenants whose due date has passed
func (r *GormInvoiceRepository) FindPastDue(ctx context.Context, now time.Time, limit int) ([]invoice.Invoice, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", invoice.InvoiceStatusPending, now).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.InvoiceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// Save inserts a new invoice header
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	if err := r.db.WithContext(ctx).Omit("Items").Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Invoice %s already exists", inv.InvoiceNumber))
		}
		return err
	}
	return nil
}

// SaveItems inserts the line-item batch in a single statement
func (r *GormInvoiceRepository) SaveItems(ctx context.Context, actor shared.AuthContext, items []invoice.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	rows := make([]*models.LineItemModel, len(items))
	for i := range items {
		rows[i] = models.LineItemModelFromDomain(&items[i], actor)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Update writes header fields with an optimistic version check.
// Line items and amounts are never rewritten here.
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	currentVersion := inv.Version
	nextVersion := currentVersion + 1
	now := time.Now()

	var dueDate *time.Time
	if !inv.DueDate.IsZero() {
		due := inv.DueDate
		dueDate = &due
	}

	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", inv.TenantID, inv.ID, currentVersion).
		Updates(map[string]any{
			"client_id":  inv.ClientID,
			"issue_date": inv.IssueDate,
			"due_date":   dueDate,
			"notes":      inv.Notes,
			"status":     inv.Status,
			"version":    nextVersion,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
			Where("tenant_id = ? AND id = ?", inv.TenantID, inv.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}

	inv.Version = nextVersion
	inv.UpdatedAt = now
	return nil
}

// Delete removes an invoice and its line items
func (r *GormInvoiceRepository) Delete(ctx context.Context, actor shared.AuthContext, id uuid.UUID) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND invoice_id = ?", actor.TenantID, id).
			Delete(&models.LineItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", actor.TenantID, id).Delete(&models.InvoiceModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ExistsByNumber checks if an invoice number is taken in the actor's tenant
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, actor shared.AuthContext, invoiceNumber string) (bool, error) {
	var count int64
	if err := scoped(r.db.WithContext(ctx), actor, &models.InvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateInvoiceNumber returns the next free number for the tenant.
// Format: PREFIX-YYYY-NNNNN (e.g., INV-2024-00001)
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, actor shared.AuthContext, prefix string) (string, error) {
	if prefix == "" {
		prefix = "INV"
	}
	yearPrefix := fmt.Sprintf("%s-%d-", prefix, time.Now().Year())

	var last models.InvoiceModel
	err := scoped(r.db.WithContext(ctx), actor, &models.InvoiceModel{}).
		Where("invoice_number LIKE ?", yearPrefix+"%").
		Order("invoice_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil {
		var num int64
		if _, parseErr := fmt.Sscanf(strings.TrimPrefix(last.InvoiceNumber, yearPrefix), "%d", &num); parseErr == nil {
			nextNum = num + 1
		}
	}

	for i := 0; i < 100; i++ {
		candidate := fmt.Sprintf("%s%05d", yearPrefix, nextNum)
		exists, err := r.ExistsByNumber(ctx, actor, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		nextNum++
	}
	return "", shared.NewDomainError("NUMBER_EXHAUSTED", "Could not allocate an invoice number")
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = searchAny(query, filter.Search, "invoice_number", "notes")
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "client_id":
			query = query.Where("client_id = ?", value)
		case "created_by":
			query = query.Where("created_by = ?", value)
		case "issued_from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issue_date >= ?", t)
			}
		case "issued_to":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issue_date <= ?", t)
			}
		}
	}
	return query
}

func invoicesToDomain(rows []models.InvoiceModel) []invoice.Invoice {
	invoices := make([]invoice.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoice.InvoiceRepository = (*GormInvoiceRepository)(nil)
