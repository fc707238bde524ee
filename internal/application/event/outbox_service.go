// Package event exposes administration of the transactional outbox: the
// dead-lettered domain events of a tenant and their redelivery.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	errOutboxEntryNotFound = shared.NewDomainError("NOT_FOUND", "Outbox entry not found")
	errOutboxUnavailable   = shared.NewDomainError("INTERNAL_ERROR", "Outbox is unavailable")
)

// OutboxEntryDTO is an outbox entry without its payload
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newOutboxEntryDTO(e *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// OutboxFilter pages the dead letter list
type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (f OutboxFilter) normalize() (page, pageSize int) {
	page = max(f.Page, 1)
	pageSize = f.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, min(pageSize, maxPageSize)
}

// OutboxListResult is one page of dead letter entries
type OutboxListResult struct {
	Entries  []OutboxEntryDTO `json:"entries"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// OutboxStatsDTO counts a tenant's entries per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// OutboxService lets tenant admins inspect and redeliver dead-lettered
// events. Every call is scoped to the actor's tenant.
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, logger: logger, now: time.Now}
}

// ListDead pages through the tenant's dead entries
func (s *OutboxService) ListDead(ctx context.Context, actor shared.AuthContext, filter OutboxFilter) (*OutboxListResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	page, pageSize := filter.normalize()

	entries, total, err := s.repo.ListDead(ctx, actor.TenantID, page, pageSize)
	if err != nil {
		s.logger.Error("List dead outbox entries", zap.Stringer("tenant_id", actor.TenantID), zap.Error(err))
		return nil, errOutboxUnavailable
	}
	result := &OutboxListResult{
		Entries:  make([]OutboxEntryDTO, 0, len(entries)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, newOutboxEntryDTO(e))
	}
	return result, nil
}

// Entry returns one entry. Entries of other tenants read as missing.
func (s *OutboxService) Entry(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := newOutboxEntryDTO(entry)
	return &dto, nil
}

// Requeue puts one dead entry back into delivery
func (s *OutboxService) Requeue(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Requeue(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Requeue outbox entry", zap.Stringer("id", id), zap.Error(err))
		return nil, errOutboxUnavailable
	}

	s.logger.Info("Outbox entry requeued",
		zap.Stringer("id", id),
		zap.String("event_type", entry.EventType),
		zap.Stringer("tenant_id", actor.TenantID),
	)
	dto := newOutboxEntryDTO(entry)
	return &dto, nil
}

// RequeueAll requeues every dead entry of the tenant and reports how many.
// Requeued entries leave the dead set, so the first page is reread until it
// drains or a pass makes no progress.
func (s *OutboxService) RequeueAll(ctx context.Context, actor shared.AuthContext) (int64, error) {
	if err := actor.Validate(); err != nil {
		return 0, err
	}

	var requeued int64
	for {
		entries, _, err := s.repo.ListDead(ctx, actor.TenantID, 1, maxPageSize)
		if err != nil {
			s.logger.Error("List dead outbox entries", zap.Stringer("tenant_id", actor.TenantID), zap.Error(err))
			return requeued, errOutboxUnavailable
		}

		pass := s.requeueEach(ctx, entries)
		requeued += pass
		if pass == 0 || len(entries) < maxPageSize {
			break
		}
	}

	s.logger.Info("Dead outbox entries requeued",
		zap.Int64("count", requeued),
		zap.Stringer("tenant_id", actor.TenantID),
	)
	return requeued, nil
}

func (s *OutboxService) requeueEach(ctx context.Context, entries []*shared.OutboxEntry) int64 {
	var n int64
	now := s.now()
	for _, entry := range entries {
		if entry.Requeue(now) != nil {
			continue
		}
		if err := s.repo.Update(ctx, entry); err != nil {
			s.logger.Warn("Requeue outbox entry", zap.Stringer("id", entry.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Stats counts the tenant's entries per status
func (s *OutboxService) Stats(ctx context.Context, actor shared.AuthContext) (*OutboxStatsDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx, actor.TenantID)
	if err != nil {
		s.logger.Error("Count outbox entries", zap.Stringer("tenant_id", actor.TenantID), zap.Error(err))
		return nil, errOutboxUnavailable
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *OutboxService) load(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*shared.OutboxEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	entry, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, errOutboxEntryNotFound
	}
	if err != nil {
		s.logger.Error("Load outbox entry", zap.Stringer("id", id), zap.Error(err))
		return nil, errOutboxUnavailable
	}
	if entry.TenantID != actor.TenantID {
		return nil, errOutboxEntryNotFound
	}
	return entry, nil
}
