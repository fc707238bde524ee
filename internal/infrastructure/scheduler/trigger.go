package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTrigger submits a named job to a Scheduler on a fixed interval.
// A tick is skipped while the previous run is still queued or running.
type IntervalTrigger struct {
	name      string
	interval  time.Duration
	runAtBoot bool
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a trigger for the job registered as name.
// With runAtBoot set the first run is submitted as soon as the trigger starts.
func NewIntervalTrigger(name string, interval time.Duration, runAtBoot bool, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		name:      name,
		interval:  interval,
		runAtBoot: runAtBoot,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts the ticker loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Interval trigger started",
		zap.String("job", t.name),
		zap.Duration("interval", t.interval),
	)
	return nil
}

// Stop stops the ticker loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.runAtBoot {
		t.Fire()
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Fire()
		}
	}
}

// Fire submits the job now. Returns false when nothing was submitted.
func (t *IntervalTrigger) Fire() bool {
	run, err := t.scheduler.Submit(t.name)
	switch {
	case errors.Is(err, ErrJobAlreadyActive):
		t.logger.Debug("Previous run still active, skipping tick", zap.String("job", t.name))
		return false
	case err != nil:
		t.logger.Warn("Failed to submit scheduled job", zap.String("job", t.name), zap.Error(err))
		return false
	}
	t.logger.Debug("Scheduled job submitted",
		zap.String("job", t.name),
		zap.Stringer("run_id", run.ID),
	)
	return true
}
