package persistence

import (
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantScope restricts a query to the actor's tenant
func TenantScope(actor shared.AuthContext) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", actor.TenantID)
	}
}

// OwnerScope restricts a query to rows created by userID.
// A nil user matches nothing.
func OwnerScope(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if userID == uuid.Nil {
			return db.Where("1 = 0")
		}
		return db.Where("created_by = ?", userID)
	}
}

// scoped returns a context-bound query on model for the actor's tenant.
// A missing tenant poisons the query so no rows can leak.
func scoped(db *gorm.DB, actor shared.AuthContext, model any) *gorm.DB {
	query := db.Model(model)
	if err := actor.Validate(); err != nil {
		_ = query.AddError(err)
		return query
	}
	return query.Scopes(TenantScope(actor))
}

// searchPattern builds a LIKE pattern for a case-insensitive substring match.
// Columns are compared with LOWER() so the same SQL runs on Postgres and SQLite.
func searchPattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(strings.TrimSpace(search)))
	return "%" + escaped + "%"
}

// searchAny adds an OR of LOWER(col) LIKE pattern across columns
func searchAny(query *gorm.DB, search string, columns ...string) *gorm.DB {
	if strings.TrimSpace(search) == "" || len(columns) == 0 {
		return query
	}
	pattern := searchPattern(search)
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		clauses[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return query.Where(strings.Join(clauses, " OR "), args...)
}

// paginate applies ordering from a whitelist and page limits
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
