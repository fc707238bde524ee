package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RecordSource fetches raw rows of one table for a tenant.
// ownedOnly narrows the rows to those the actor created.
type RecordSource interface {
	Fetch(ctx context.Context, actor shared.AuthContext, table string, columns []string, ownedOnly bool) ([]Record, error)
}

// Scope selects whose records are browsed
type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeMine Scope = "mine"
)

// BrowseQuery narrows a browsed table
type BrowseQuery struct {
	Search string `form:"search" binding:"max=200"`
	Scope  Scope  `form:"scope" binding:"omitempty,oneof=all mine"`
}

// Match reports whether the case-insensitive query is a substring of any
// field value. An empty query matches every record.
func Match(record Record, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, value := range record {
		if strings.Contains(strings.ToLower(Stringify(value)), query) {
			return true
		}
	}
	return false
}

// Service serves the record browser
type Service struct {
	source   RecordSource
	registry *Registry
	renderer *Renderer
	logger   *zap.Logger
}

// NewService creates a browser Service
func NewService(source RecordSource, registry *Registry, renderer *Renderer, logger *zap.Logger) *Service {
	return &Service{
		source:   source,
		registry: registry,
		renderer: renderer,
		logger:   logger,
	}
}

// Tables returns the browsable schemas in display order
func (s *Service) Tables() []TableSchema {
	return s.registry.Tables()
}

// Browse fetches a table for the actor, filters it by search and renders it
func (s *Service) Browse(ctx context.Context, actor shared.AuthContext, table string, q BrowseQuery) (result *RenderedTable, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "browser", "browse")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	schema, ok := s.registry.Lookup(table)
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_TABLE", fmt.Sprintf("Unknown table: %s", table))
	}

	scope := q.Scope
	if scope == "" {
		scope = ScopeAll
	}
	switch scope {
	case ScopeAll:
		err = actor.Validate()
	case ScopeMine:
		err = actor.RequireUser()
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown scope: %s", scope))
	}
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTable, table,
		telemetry.SpanAttrScope, string(scope),
	)

	records, err := s.source.Fetch(ctx, actor, table, schema.Keys(), scope == ScopeMine)
	if err != nil {
		s.logger.Error("Failed to fetch records",
			zap.String("table", table),
			zap.String("tenant_id", actor.TenantID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	matched := records
	if strings.TrimSpace(q.Search) != "" {
		matched = make([]Record, 0, len(records))
		for _, record := range records {
			if Match(record, q.Search) {
				matched = append(matched, record)
			}
		}
	}

	rendered := s.renderer.Render(schema, matched)
	rendered.Total = len(records)
	return &rendered, nil
}
