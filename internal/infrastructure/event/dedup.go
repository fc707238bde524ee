package event

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultDedupTTL is how long a handled event ID is remembered.
const DefaultDedupTTL = 24 * time.Hour

// DedupCounts tallies the outcomes seen by a Deduplicated handler.
type DedupCounts struct {
	Handled int64 `json:"handled"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Deduplicated runs the wrapped handler at most once per event ID. The outbox
// relay redelivers a whole row after a partial failure, so handlers fed by it
// sit behind one of these. Claims are scoped, so two handlers subscribed to
// the same event type do not shadow each other.
type Deduplicated struct {
	scope  string
	next   shared.EventHandler
	claims shared.IdempotencyStore
	ttl    time.Duration
	log    *zap.Logger

	handled, skipped, failed atomic.Int64
}

// Deduplicate wraps next. An empty scope falls back to next's type name and a
// non-positive ttl to DefaultDedupTTL.
func Deduplicate(scope string, next shared.EventHandler, claims shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) *Deduplicated {
	if scope == "" {
		scope = fmt.Sprintf("%T", next)
	}
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Deduplicated{scope: scope, next: next, claims: claims, ttl: ttl, log: log}
}

func (d *Deduplicated) EventTypes() []string { return d.next.EventTypes() }

// Handle claims the event before running the wrapped handler and gives the
// claim back when the handler fails. If the store itself errors the event is
// handled anyway: a repeat alert beats a lost one.
func (d *Deduplicated) Handle(ctx context.Context, evt shared.DomainEvent) error {
	key := "event:" + d.scope + ":" + evt.EventID().String()

	first, err := d.claims.MarkProcessed(ctx, key, d.ttl)
	if err != nil {
		d.log.Warn("Dedup claim failed, handling without it",
			zap.String("key", key), zap.Error(err))
		return d.run(ctx, evt, "")
	}
	if !first {
		d.skipped.Add(1)
		d.log.Debug("Skipping already handled event",
			zap.String("key", key), zap.String("event_type", evt.EventType()))
		return nil
	}
	return d.run(ctx, evt, key)
}

func (d *Deduplicated) run(ctx context.Context, evt shared.DomainEvent, claimed string) error {
	err := d.next.Handle(ctx, evt)
	if err == nil {
		d.handled.Add(1)
		return nil
	}
	d.failed.Add(1)
	if claimed != "" {
		if relErr := d.claims.Release(context.WithoutCancel(ctx), claimed); relErr != nil {
			d.log.Warn("Dedup claim not released; redelivery will be skipped until it expires",
				zap.String("key", claimed), zap.Error(relErr))
		}
	}
	return err
}

// Counts returns a snapshot of the outcome counters.
func (d *Deduplicated) Counts() DedupCounts {
	return DedupCounts{
		Handled: d.handled.Load(),
		Skipped: d.skipped.Load(),
		Failed:  d.failed.Load(),
	}
}

var _ shared.EventHandler = (*Deduplicated)(nil)
