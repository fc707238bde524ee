package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish outside Start/Stop.
var ErrBusStopped = errors.New("event bus is not running")

// InMemoryEventBus delivers synchronously, in subscription order. One
// handler failing or panicking does not keep the event from the others.
type InMemoryEventBus struct {
	handlers *HandlerRegistry
	log      *zap.Logger
	open     atomic.Bool
	failures atomic.Int64
}

func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryEventBus{handlers: NewHandlerRegistry(), log: log}
}

// Publish delivers every event before returning. Handler failures are
// counted and logged, never returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.open.Load() {
		return ErrBusStopped
	}
	for _, evt := range events {
		b.deliver(ctx, evt)
	}
	return nil
}

func (b *InMemoryEventBus) deliver(ctx context.Context, evt shared.DomainEvent) {
	for _, h := range b.handlers.GetHandlers(evt.EventType()) {
		began := time.Now()
		err := safeHandle(ctx, h, evt)
		if err == nil {
			b.log.Debug("Event handled",
				zap.String("event_type", evt.EventType()),
				zap.String("handler", handlerName(h)),
				zap.Duration("took", time.Since(began)))
			continue
		}
		b.failures.Add(1)
		b.log.Error("Event handler failed",
			zap.String("event_type", evt.EventType()),
			zap.Stringer("event_id", evt.EventID()),
			zap.Stringer("tenant_id", evt.TenantID()),
			zap.String("handler", handlerName(h)),
			zap.Error(err))
	}
}

// Subscribe registers h for eventTypes, defaulting to h.EventTypes(). An
// empty list on both sides subscribes to everything.
func (b *InMemoryEventBus) Subscribe(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = h.EventTypes()
	}
	b.handlers.Register(h, eventTypes...)
	b.log.Debug("Event handler subscribed",
		zap.String("handler", handlerName(h)), zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(h shared.EventHandler) {
	b.handlers.Unregister(h)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.open.Store(true)
	b.log.Info("Event bus started")
	return nil
}

// Stop closes the bus to new events. Delivery is synchronous, so nothing is
// in flight once in-progress Publish calls have returned.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.open.Store(false)
	b.log.Info("Event bus stopped", zap.Int64("handler_failures", b.failures.Load()))
	return nil
}

// Failures counts handler calls that returned an error or panicked.
func (b *InMemoryEventBus) Failures() int64 {
	return b.failures.Load()
}

func safeHandle(ctx context.Context, h shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, evt)
}

func handlerName(h shared.EventHandler) string {
	if d, ok := h.(*Deduplicated); ok {
		return d.scope
	}
	return fmt.Sprintf("%T", h)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
