package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestServiceResource(t *testing.T) {
	res, err := serviceResource("invoicing", "")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "invoicing", attrs[string(semconv.ServiceNameKey)])
	assert.Equal(t, "dev", attrs[string(semconv.ServiceVersionKey)])

	res, err = serviceResource("invoicing", "1.4.0")
	require.NoError(t, err)
	for _, kv := range res.Attributes() {
		if kv.Key == semconv.ServiceVersionKey {
			assert.Equal(t, "1.4.0", kv.Value.AsString())
		}
	}
}

func TestShutdownProvider(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	assert.NoError(t, shutdownProvider(context.Background(), "trace", nil, logger))

	var deadline time.Time
	err := shutdownProvider(context.Background(), "trace", func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}, logger)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(providerShutdownTimeout), deadline, time.Second)
	assert.Equal(t, 1, logs.FilterMessage("otel provider stopped").Len())

	err = shutdownProvider(context.Background(), "log", func(context.Context) error {
		return errors.New("collector gone")
	}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown log provider")
	assert.Equal(t, 1, logs.FilterMessage("otel provider shutdown failed").Len())
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Contains(t, sampler(tt.ratio).Description(), tt.want, "ratio %v", tt.ratio)
		assert.Contains(t, sampler(tt.ratio).Description(), "ParentBased")
	}
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	tp, err := NewTracerProvider(ctx, Config{ServiceName: "invoicing"}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	tp.EnableSpanProfiles()
	assert.False(t, tp.spanProfiles)
	assert.NoError(t, tp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, LogsConfig{ServiceName: "invoicing"}, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, MetricsConfig{ServiceName: "invoicing"}, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("invoicing"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestTracerProvider_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	ctx := context.Background()

	// the gRPC exporter connects lazily, so no collector is needed until spans are flushed
	tp, err := NewTracerProvider(ctx, Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     1,
		ServiceName:       "invoicing",
		ServiceVersion:    "test",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	require.True(t, tp.IsEnabled())
	assert.Same(t, tp.provider, otel.GetTracerProvider().(*sdktrace.TracerProvider))

	tp.EnableSpanProfiles()
	tp.EnableSpanProfiles()
	assert.True(t, tp.spanProfiles)
	assert.NotSame(t, tp.provider, otel.GetTracerProvider())

	assert.NoError(t, tp.Shutdown(ctx))
}
