// Package scheduler runs named background jobs on a small worker pool.
// Jobs are submitted by interval triggers; at most one run of a job is
// queued or executing at any time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run is one execution of a registered job
type Run struct {
	ID       uuid.UUID
	Job      string
	Attempt  int
	QueuedAt time.Time
}

// Executor does the work of one job
type Executor interface {
	Execute(ctx context.Context, run *Run) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, run *Run) error

func (f ExecutorFunc) Execute(ctx context.Context, run *Run) error { return f(ctx, run) }

// Config sizes the pool and sets job defaults
type Config struct {
	Workers    int
	QueueSize  int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:    3,
		QueueSize:  32,
		Timeout:    10 * time.Minute,
		Retries:    2,
		RetryDelay: time.Minute,
	}
}

// JobOption overrides a Config default for one job
type JobOption func(*job)

// WithRetries sets how often a failed run is repeated before giving up
func WithRetries(n int, delay time.Duration) JobOption {
	return func(j *job) {
		j.retries = max(n, 0)
		if delay > 0 {
			j.retryDelay = delay
		}
	}
}

func WithTimeout(d time.Duration) JobOption {
	return func(j *job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

type job struct {
	exec       Executor
	retries    int
	retryDelay time.Duration
	timeout    time.Duration
}

type Scheduler struct {
	config Config
	logger *zap.Logger
	queue  chan *Run

	mu      sync.Mutex
	jobs    map[string]*job
	active  map[string]struct{}
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New fills zero config fields from DefaultConfig
func New(config Config, logger *zap.Logger) *Scheduler {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config: config,
		logger: logger.Named("scheduler"),
		queue:  make(chan *Run, config.QueueSize),
		jobs:   make(map[string]*job),
		active: make(map[string]struct{}),
	}
}

// Register binds name to exec, replacing any earlier registration
func (s *Scheduler) Register(name string, exec Executor, opts ...JobOption) {
	j := &job{
		exec:       exec,
		retries:    s.config.Retries,
		retryDelay: s.config.RetryDelay,
		timeout:    s.config.Timeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	s.mu.Lock()
	s.jobs[name] = j
	s.mu.Unlock()
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for i := range s.config.Workers {
		s.wg.Add(1)
		go s.work(ctx, i)
	}
	s.logger.Info("Scheduler started", zap.Int("workers", s.config.Workers), zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels in-flight runs and waits for the workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Submit queues a run of name
func (s *Scheduler) Submit(name string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.running:
		return nil, ErrSchedulerNotRunning
	case s.jobs[name] == nil:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if _, busy := s.active[name]; busy {
		return nil, ErrJobAlreadyActive
	}

	run := &Run{ID: uuid.New(), Job: name, Attempt: 1, QueuedAt: time.Now()}
	if !s.enqueueLocked(run) {
		return nil, ErrJobQueueFull
	}
	s.active[name] = struct{}{}
	return run, nil
}

// IsActive reports whether a run of name is queued, executing or waiting to retry
func (s *Scheduler) IsActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[name]
	return ok
}

func (s *Scheduler) enqueueLocked(run *Run) bool {
	select {
	case s.queue <- run:
		return true
	default:
		return false
	}
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case run := <-s.queue:
			s.execute(ctx, worker, run)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, worker int, run *Run) {
	s.mu.Lock()
	j := s.jobs[run.Job]
	s.mu.Unlock()

	log := s.logger.With(
		zap.String("job", run.Job),
		zap.Stringer("run_id", run.ID),
		zap.Int("attempt", run.Attempt),
		zap.Int("worker", worker),
	)
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	var err error
	telemetry.WithProfilingLabels(runCtx, telemetry.OperationLabels(run.Job), func(ctx context.Context) {
		err = j.exec.Execute(ctx, run)
	})
	cancel()

	if err == nil {
		log.Debug("Job finished", zap.Duration("took", time.Since(start)))
		s.finish(run.Job)
		return
	}
	if run.Attempt > j.retries || ctx.Err() != nil {
		log.Error("Job failed", zap.Error(err))
		s.finish(run.Job)
		return
	}

	log.Warn("Job failed, retrying", zap.Duration("retry_in", j.retryDelay), zap.Error(err))
	next := &Run{ID: run.ID, Job: run.Job, Attempt: run.Attempt + 1, QueuedAt: time.Now()}
	time.AfterFunc(j.retryDelay, func() { s.retry(next) })
}

// retry requeues a failed run. The job stays active in between so triggers
// do not start a parallel run.
func (s *Scheduler) retry(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.enqueueLocked(run) {
		return
	}
	delete(s.active, run.Job)
	if s.running {
		s.logger.Warn("Retry dropped, queue full", zap.String("job", run.Job), zap.Stringer("run_id", run.ID))
	}
}

func (s *Scheduler) finish(name string) {
	s.mu.Lock()
	delete(s.active, name)
	s.mu.Unlock()
}
