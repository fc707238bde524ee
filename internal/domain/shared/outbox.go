package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// OutboxMaxAttempts failed deliveries move an entry to DEAD
const OutboxMaxAttempts = 5

const (
	outboxBackoffBase = time.Second
	outboxBackoffCap  = 10 * time.Minute
)

// ErrNotDeadLetter rejects a requeue of an entry that is still being delivered
var ErrNotDeadLetter = NewDomainError("INVALID_STATE", "Only dead letter entries can be retried")

// OutboxEntry is a serialized domain event waiting to reach the event bus.
// It is written in the same transaction as the change that raised the event.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an already serialized event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    OutboxMaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// OutboxRetryDelay is how long an entry waits after its n-th failure:
// 1s, 2s, 4s and so on, capped at ten minutes.
func OutboxRetryDelay(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	if failures > 20 {
		return outboxBackoffCap
	}
	return min(outboxBackoffBase<<(failures-1), outboxBackoffCap)
}

// MarkSent records a delivery to the bus
func (e *OutboxEntry) MarkSent(at time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &at
	e.NextRetryAt = nil
	e.UpdatedAt = at
}

// MarkFailed records a failed delivery. The entry is retried after
// OutboxRetryDelay until MaxRetries failures, then it is dead.
func (e *OutboxEntry) MarkFailed(cause string, at time.Time) {
	e.RetryCount++
	e.LastError = cause
	e.UpdatedAt = at

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := at.Add(OutboxRetryDelay(e.RetryCount))
	e.NextRetryAt = &next
}

// Requeue gives a dead entry a fresh set of attempts
func (e *OutboxEntry) Requeue(at time.Time) error {
	if !e.IsDead() {
		return ErrNotDeadLetter
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = at
	return nil
}

func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	Update(ctx context.Context, entry *OutboxEntry) error
	// Get returns ErrNotFound for an unknown id
	Get(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)

	// FindDue lists pending entries and failed entries whose retry time has
	// passed, oldest first
	FindDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// Claim moves the given entries to PROCESSING and returns those this
	// caller won. Entries claimed elsewhere meanwhile are left out.
	Claim(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// ReleaseStale returns entries stuck in PROCESSING since before cutoff
	// to PENDING
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
	// PurgeSent deletes entries delivered before cutoff
	PurgeSent(ctx context.Context, cutoff time.Time) (int64, error)

	ListDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*OutboxEntry, int64, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[OutboxStatus]int64, error)
}
