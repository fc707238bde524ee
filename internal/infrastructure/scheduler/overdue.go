package scheduler

import (
	"context"
	"time"

	appinvoice "github.com/erp/invoicing/internal/application/invoice"
	"go.uber.org/zap"
)

// JobOverdueSweep is the job name of the overdue invoice sweep
const JobOverdueSweep = "overdue_sweep"

// defaultMaxSweepBatches bounds one sweep run
const defaultMaxSweepBatches = 20

// OverdueSweeper marks past-due pending invoices as overdue, one batch per call
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context, now time.Time) (*appinvoice.OverdueSweepResult, error)
}

// OverdueSweepExecutor drains past-due invoices batch by batch
type OverdueSweepExecutor struct {
	sweeper    OverdueSweeper
	maxBatches int
	now        func() time.Time
	logger     *zap.Logger
}

// NewOverdueSweepExecutor creates an OverdueSweepExecutor
func NewOverdueSweepExecutor(sweeper OverdueSweeper, logger *zap.Logger) *OverdueSweepExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweepExecutor{
		sweeper:    sweeper,
		maxBatches: defaultMaxSweepBatches,
		now:        time.Now,
		logger:     logger,
	}
}

// Execute sweeps until a batch comes back empty, a batch makes no progress,
// or the batch limit is reached. Every batch uses the same cutoff.
func (e *OverdueSweepExecutor) Execute(ctx context.Context, run *Run) error {
	now := e.now()
	var marked, failed int

	for batch := 0; batch < e.maxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := e.sweeper.MarkOverdue(ctx, now)
		if err != nil {
			return err
		}
		marked += result.Marked
		failed += result.Failed
		if result.Found == 0 || result.Marked == 0 {
			break
		}
	}

	e.logger.Info("Overdue sweep finished",
		zap.Stringer("run_id", run.ID),
		zap.Time("cutoff", now),
		zap.Int("marked", marked),
		zap.Int("failed", failed),
	)
	return nil
}

var _ Executor = (*OverdueSweepExecutor)(nil)
