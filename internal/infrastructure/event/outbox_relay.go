package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxRelayConfig tunes one relay
type OutboxRelayConfig struct {
	// BatchSize bounds the entries delivered per RelayBatch call
	BatchSize int
	// Retention is how long delivered entries are kept
	Retention time.Duration
	// StaleAfter releases claims of a relay that died mid-batch
	StaleAfter time.Duration
}

func DefaultOutboxRelayConfig() OutboxRelayConfig {
	return OutboxRelayConfig{
		BatchSize:  100,
		Retention:  7 * 24 * time.Hour,
		StaleAfter: 5 * time.Minute,
	}
}

// OutboxRelay moves due outbox entries onto the event bus. It does not loop
// on its own; the job scheduler calls RelayBatch and Housekeep.
type OutboxRelay struct {
	repo   shared.OutboxRepository
	bus    shared.EventPublisher
	codec  *Codec
	config OutboxRelayConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewOutboxRelay fills zero config fields from DefaultOutboxRelayConfig
func NewOutboxRelay(repo shared.OutboxRepository, bus shared.EventPublisher, codec *Codec, config OutboxRelayConfig, logger *zap.Logger) *OutboxRelay {
	def := DefaultOutboxRelayConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Retention <= 0 {
		config.Retention = def.Retention
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxRelay{
		repo:   repo,
		bus:    bus,
		codec:  codec,
		config: config,
		logger: logger.Named("outbox"),
		now:    time.Now,
	}
}

// RelayBatch claims up to BatchSize due entries and publishes them. It
// returns how many reached the bus; failed entries are rescheduled.
func (r *OutboxRelay) RelayBatch(ctx context.Context) (int, error) {
	due, err := r.repo.FindDue(ctx, r.now(), r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("find due outbox entries: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(due))
	for i, e := range due {
		ids[i] = e.ID
	}
	claimed, err := r.repo.Claim(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("claim outbox entries: %w", err)
	}

	sent := 0
	for _, entry := range claimed {
		if r.relay(ctx, entry) {
			sent++
		}
	}
	if sent > 0 {
		r.logger.Debug("Outbox batch relayed", zap.Int("sent", sent), zap.Int("claimed", len(claimed)))
	}
	return sent, nil
}

func (r *OutboxRelay) relay(ctx context.Context, entry *shared.OutboxEntry) bool {
	event, err := r.codec.Decode(entry.EventType, entry.Payload)
	if err == nil {
		err = r.bus.Publish(ctx, event)
	}

	if err != nil {
		entry.MarkFailed(err.Error(), r.now())
		log := r.logger.With(
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.Int("attempts", entry.RetryCount),
			zap.Error(err),
		)
		if entry.IsDead() {
			log.Warn("Outbox entry dead-lettered")
		} else {
			log.Info("Outbox delivery failed, will retry", zap.Timep("next_retry_at", entry.NextRetryAt))
		}
	} else {
		entry.MarkSent(r.now())
	}

	if uerr := r.repo.Update(ctx, entry); uerr != nil {
		// the claim goes stale and Housekeep releases it
		r.logger.Error("Failed to record outbox delivery",
			zap.String("event_id", entry.EventID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(uerr),
		)
	}
	return err == nil
}

// Housekeep releases stale claims and purges delivered entries past retention
func (r *OutboxRelay) Housekeep(ctx context.Context) error {
	now := r.now()
	released, err := r.repo.ReleaseStale(ctx, now.Add(-r.config.StaleAfter))
	if err != nil {
		return fmt.Errorf("release stale outbox claims: %w", err)
	}
	purged, err := r.repo.PurgeSent(ctx, now.Add(-r.config.Retention))
	if err != nil {
		return fmt.Errorf("purge sent outbox entries: %w", err)
	}
	if released > 0 || purged > 0 {
		r.logger.Info("Outbox housekeeping done",
			zap.Int64("released", released),
			zap.Int64("purged", purged),
		)
	}
	return nil
}
