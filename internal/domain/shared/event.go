package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents something that happened in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// EventHeader is embedded by every concrete event and satisfies DomainEvent.
type EventHeader struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"type"`
	Occurred  time.Time `json:"occurred_at"`
	Subject   uuid.UUID `json:"aggregate_id"`
	SubjectOf string    `json:"aggregate_type"`
	Tenant    uuid.UUID `json:"tenant_id"`
}

func (h *EventHeader) EventID() uuid.UUID     { return h.ID }
func (h *EventHeader) EventType() string      { return h.Kind }
func (h *EventHeader) OccurredAt() time.Time  { return h.Occurred }
func (h *EventHeader) AggregateID() uuid.UUID { return h.Subject }
func (h *EventHeader) AggregateType() string  { return h.SubjectOf }
func (h *EventHeader) TenantID() uuid.UUID    { return h.Tenant }

// NewEventHeader stamps a fresh event ID and the current UTC time.
func NewEventHeader(kind, aggregateType string, aggregateID, tenantID uuid.UUID) EventHeader {
	return EventHeader{
		ID:        uuid.New(),
		Kind:      kind,
		Occurred:  time.Now().UTC(),
		Subject:   aggregateID,
		SubjectOf: aggregateType,
		Tenant:    tenantID,
	}
}

// EventHandler handles domain events.
// An empty EventTypes slice subscribes to every event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher with subscription and lifecycle
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
