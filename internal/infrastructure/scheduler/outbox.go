package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// Job names of the outbox relay
const (
	JobOutboxRelay        = "outbox_relay"
	JobOutboxHousekeeping = "outbox_housekeeping"
)

// defaultMaxRelayBatches bounds one relay run so a flood of events cannot
// hold a worker forever
const defaultMaxRelayBatches = 10

// OutboxRelayer is implemented by the event outbox relay
type OutboxRelayer interface {
	RelayBatch(ctx context.Context) (int, error)
	Housekeep(ctx context.Context) error
}

// OutboxRelayExecutor relays batches until one delivers nothing
type OutboxRelayExecutor struct {
	relay      OutboxRelayer
	maxBatches int
	logger     *zap.Logger
}

func NewOutboxRelayExecutor(relay OutboxRelayer, logger *zap.Logger) *OutboxRelayExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxRelayExecutor{relay: relay, maxBatches: defaultMaxRelayBatches, logger: logger}
}

func (e *OutboxRelayExecutor) Execute(ctx context.Context, run *Run) error {
	total := 0
	for range e.maxBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		sent, err := e.relay.RelayBatch(ctx)
		total += sent
		if err != nil {
			return err
		}
		if sent == 0 {
			break
		}
	}
	if total > 0 {
		e.logger.Debug("Outbox relayed", zap.Stringer("run_id", run.ID), zap.Int("sent", total))
	}
	return nil
}

// NewOutboxHousekeepingExecutor releases stale claims and purges old entries
func NewOutboxHousekeepingExecutor(relay OutboxRelayer) Executor {
	return ExecutorFunc(func(ctx context.Context, _ *Run) error {
		return relay.Housekeep(ctx)
	})
}

var _ Executor = (*OutboxRelayExecutor)(nil)
