package persistence

import (
	"context"
	"fmt"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/erp/invoicing/internal/domain/shared"
	"gorm.io/gorm"
)

// browsableTables maps the table names the record browser may read.
// Only these names ever reach db.Table.
var browsableTables = map[string]bool{
	"invoices":           true,
	"clients":            true,
	"profiles":           true,
	"invoice_line_items": true,
}

// GormRecordSource fetches raw rows for the record browser
type GormRecordSource struct {
	db *gorm.DB
}

// NewGormRecordSource creates a new GormRecordSource
func NewGormRecordSource(db *gorm.DB) *GormRecordSource {
	return &GormRecordSource{db: db}
}

// Fetch returns every row of table for the actor's tenant, newest first.
// Only the requested columns are selected; ownedOnly narrows to rows the actor created.
func (s *GormRecordSource) Fetch(ctx context.Context, actor shared.AuthContext, table string, columns []string, ownedOnly bool) ([]browser.Record, error) {
	if !browsableTables[table] {
		return nil, shared.NewDomainError("UNKNOWN_TABLE", fmt.Sprintf("Unknown table: %s", table))
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Table(table).Scopes(TenantScope(actor))
	if len(columns) > 0 {
		query = query.Select(columns)
	}
	if ownedOnly {
		query = query.Scopes(OwnerScope(actor.UserID))
	}

	var rows []map[string]any
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}

	records := make([]browser.Record, len(rows))
	for i, row := range rows {
		records[i] = browser.Record(row)
	}
	return records, nil
}

var _ browser.RecordSource = (*GormRecordSource)(nil)
