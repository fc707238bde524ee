package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// providerShutdownTimeout bounds how long a provider may spend flushing on exit
const providerShutdownTimeout = 10 * time.Second

// serviceResource describes this process to the collector. An empty version
// is reported as "dev".
func serviceResource(serviceName, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}
	return res, nil
}

// shutdownProvider flushes and stops one signal pipeline. A nil stop means the
// signal was never enabled.
func shutdownProvider(ctx context.Context, signal string, stop func(context.Context) error, logger *zap.Logger) error {
	if stop == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		logger.Error("otel provider shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	logger.Info("otel provider stopped", zap.String("signal", signal))
	return nil
}
