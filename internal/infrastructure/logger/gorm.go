package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig tunes the GORM logger
type GormConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration // 0 disables slow-query warnings
	// LogFullSQL logs statements with bound values; otherwise parameters are elided
	LogFullSQL bool
}

// GormLogger implements gorm's logger.Interface on zap. Statements are logged
// through L(ctx) so they carry the request and trace IDs of the caller.
type GormLogger struct {
	base *zap.Logger
	cfg  GormConfig
}

// NewGormLogger creates a GORM logger
func NewGormLogger(base *zap.Logger, cfg GormConfig) *GormLogger {
	if cfg.SlowThreshold < 0 {
		cfg.SlowThreshold = 0
	}
	return &GormLogger{base: base.Named("gorm"), cfg: cfg}
}

func (l *GormLogger) logger(ctx context.Context) *zap.Logger {
	if ctx == nil || ctx.Value(loggerKey) == nil {
		return l.base
	}
	return L(ctx).Named("gorm")
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		l.logger(ctx).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		l.logger(ctx).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		l.logger(ctx).Sugar().Errorf(msg, data...)
	}
}

// ParamsFilter implements gorm's ParamsFilter; bound values are dropped unless LogFullSQL is set
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.cfg.LogFullSQL {
		return sql, params
	}
	return sql, nil
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold
	notFound := errors.Is(err, gormlogger.ErrRecordNotFound)

	var log func(string, ...zap.Field)
	switch {
	case err != nil && !notFound && l.cfg.Level >= gormlogger.Error:
		log = l.logger(ctx).Error
	case slow && l.cfg.Level >= gormlogger.Warn:
		log = l.logger(ctx).Warn
	case l.cfg.Level >= gormlogger.Info:
		log = l.logger(ctx).Debug
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	switch {
	case err != nil && !notFound:
		log("sql error", append(fields, zap.Error(err))...)
	case slow:
		log("slow sql", append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))...)
	default:
		log("sql", fields...)
	}
}

// MapGormLogLevel maps a log.level setting to the GORM level. Debug shows every
// statement; info and above keep GORM at warnings.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
