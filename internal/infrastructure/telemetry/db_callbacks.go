package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

type gormOperation struct {
	name   string
	verb   string // empty when the statement is free-form SQL
	before callbackRegistrar
	after  callbackRegistrar
}

func gormOperations(db *gorm.DB) []gormOperation {
	cb := db.Callback()
	return []gormOperation{
		{"create", "INSERT", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", "SELECT", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", "UPDATE", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", "", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", "", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
}

// registerAround hooks before and after every gorm operation under
// "<prefix>:before_<op>" and "<prefix>:after_<op>". after receives the SQL verb.
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(db *gorm.DB, verb string)) error {
	for _, op := range gormOperations(db) {
		verb := op.verb
		if err := op.before.Register(prefix+":before_"+op.name, before); err != nil {
			return err
		}
		if err := op.after.Register(prefix+":after_"+op.name, func(tx *gorm.DB) {
			v := verb
			if v == "" {
				v = sqlVerb(tx.Statement.SQL.String())
			}
			after(tx, v)
		}); err != nil {
			return err
		}
	}
	return nil
}

type queryStartKey struct{}

func markQueryStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

func queryElapsed(db *gorm.DB) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(queryStartKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// sqlVerb returns the leading keyword of a statement, or OTHER
func sqlVerb(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
