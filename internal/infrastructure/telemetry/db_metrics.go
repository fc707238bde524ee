package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig configures query and connection pool metrics
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics records query counts and latency, plus periodic pool gauges
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter

	config DBMetricsConfig
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDBMetrics registers the db_* instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	defaults := DefaultDBMetricsConfig()
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaults.PoolStatsInterval
	}
	m := &DBMetrics{config: cfg, logger: logger, stop: make(chan struct{})}

	in := NewInstruments(meter)
	m.poolConnections = in.Gauge("db_pool_connections", "{connection}", "Connections in the pool by state")
	m.poolConnectionsMax = in.Gauge("db_pool_connections_max", "{connection}", "Maximum open connections allowed")
	m.queryTotal = in.Counter("db_query_total", "{query}", "Queries executed by SQL verb")
	m.queryDuration = in.Histogram("db_query_duration_seconds", "s", "Query latency by SQL verb", DBDurationBuckets...)
	m.slowQueryTotal = in.Counter("db_slow_query_total", "{query}", "Queries slower than the configured threshold, by table")
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery counts one statement
func (m *DBMetrics) RecordQuery(ctx context.Context, verb, table string, elapsed time.Duration) {
	if verb == "" {
		verb = "OTHER"
	}
	op := AttrDBOperation.String(verb)
	m.queryTotal.Inc(ctx, op)
	m.queryDuration.Observe(ctx, elapsed, op)

	if elapsed > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// RecordPoolStats records a snapshot of the connection pool
func (m *DBMetrics) RecordPoolStats(ctx context.Context, stats sql.DBStats) {
	m.poolConnectionsMax.Set(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Set(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Set(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Set(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// watchPool samples stats every PoolStatsInterval until Stop or ctx ends
func (m *DBMetrics) watchPool(ctx context.Context, stats func() sql.DBStats) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.RecordPoolStats(ctx, stats())
		for {
			select {
			case <-ticker.C:
				m.RecordPoolStats(ctx, stats())
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends pool sampling. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.wg.Wait()
	})
}

func (m *DBMetrics) afterQuery(db *gorm.DB, verb string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	elapsed, _ := queryElapsed(db)
	m.RecordQuery(ctx, verb, db.Statement.Table, elapsed)
}

// RegisterDBMetrics hooks query metrics into db and starts sampling its pool.
// With metrics disabled it returns nil metrics and no error; Stop the result
// on shutdown otherwise.
func RegisterDBMetrics(ctx context.Context, db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meterProvider == nil || !meterProvider.IsEnabled() {
		return nil, nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	m, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := registerAround(db, "db_metrics", markQueryStart, m.afterQuery); err != nil {
		return nil, err
	}
	m.watchPool(ctx, sqlDB.Stats)

	logger.Info("database metrics enabled",
		zap.Duration("slow_query_threshold", m.config.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", m.config.PoolStatsInterval))
	return m, nil
}
