package event

import (
	"context"

	"github.com/erp/invoicing/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher implements shared.EventPublisher by writing events to the
// outbox table. OutboxRelay delivers them to the bus later, with retries.
type OutboxPublisher struct {
	repo  *GormOutboxRepository
	codec *Codec
}

// NewOutboxPublisher creates an OutboxPublisher writing through db
func NewOutboxPublisher(db *gorm.DB, codec *Codec) *OutboxPublisher {
	return &OutboxPublisher{
		repo:  NewGormOutboxRepository(db),
		codec: codec,
	}
}

// Publish stores events as pending outbox entries
func (p *OutboxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return p.save(ctx, p.repo, events)
}

// WithTx returns a publisher writing inside tx, so its events commit or roll back with it
func (p *OutboxPublisher) WithTx(tx *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{repo: p.repo.WithTx(tx), codec: p.codec}
}

func (p *OutboxPublisher) save(ctx context.Context, repo *GormOutboxRepository, events []shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.codec.Encode(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return repo.Save(ctx, entries...)
}

var _ shared.EventPublisher = (*OutboxPublisher)(nil)
