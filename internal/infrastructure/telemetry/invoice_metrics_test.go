package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type censusFunc func(ctx context.Context, lowThreshold int64) ([]StockCount, error)

func (f censusFunc) CountStock(ctx context.Context, lowThreshold int64) ([]StockCount, error) {
	return f(ctx, lowThreshold)
}

func TestNewInvoiceMetrics_RequiresMeter(t *testing.T) {
	im, err := NewInvoiceMetrics(InvoiceMetricsConfig{})
	assert.ErrorIs(t, err, ErrNoMeter)
	assert.Nil(t, im)

	im, err = NewInvoiceMetrics(InvoiceMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), im.threshold)
}

func TestInvoiceMetrics_Submissions(t *testing.T) {
	meter, reader := manualMeter(t)
	im, err := NewInvoiceMetrics(InvoiceMetricsConfig{Meter: meter, Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx := context.Background()
	acme := uuid.MustParse("8f0c5a52-3f6e-4c1e-9a55-0a7e1c6f2b11")
	im.RecordInvoiceCreated(ctx, acme, decimal.RequireFromString("1234.50"), 3)
	im.RecordInvoiceCreated(ctx, acme, decimal.RequireFromString("0.995"), 1)
	im.RecordSubmissionFailed(ctx, acme, "INSUFFICIENT_STOCK")
	im.RecordOverdueMarked(ctx, 4)
	im.RecordOverdueMarked(ctx, 0)

	tenant := acme.String()
	assert.Equal(t, map[string]int64{tenant: 2}, sumByAttr(t, collect(t, reader, "invoicing_invoice_created_total"), AttrTenantID))
	assert.Equal(t, map[string]int64{tenant: 123549}, sumByAttr(t, collect(t, reader, "invoicing_invoice_amount_total"), AttrTenantID))
	assert.Equal(t, map[string]int64{tenant: 4}, sumByAttr(t, collect(t, reader, "invoicing_line_items_total"), AttrTenantID))
	assert.Equal(t, map[string]int64{"INSUFFICIENT_STOCK": 1}, sumByAttr(t, collect(t, reader, "invoicing_submission_failed_total"), AttrFailureReason))
	assert.Equal(t, int64(4), total(t, collect(t, reader, "invoicing_invoice_overdue_total")))
}

func TestInvoiceMetrics_NilReceiver(t *testing.T) {
	var im *InvoiceMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		im.RecordInvoiceCreated(ctx, uuid.New(), decimal.NewFromInt(10), 1)
		im.RecordSubmissionFailed(ctx, uuid.New(), "INTERNAL_ERROR")
		im.RecordOverdueMarked(ctx, 1)
	})
	assert.NoError(t, im.CollectStock(ctx))
}

func TestInvoiceMetrics_CollectStock(t *testing.T) {
	meter, reader := manualMeter(t)
	acme, globex := uuid.New(), uuid.New()
	var threshold int64
	im, err := NewInvoiceMetrics(InvoiceMetricsConfig{
		Meter:             meter,
		LowStockThreshold: 3,
		Census: censusFunc(func(_ context.Context, low int64) ([]StockCount, error) {
			threshold = low
			return []StockCount{{TenantID: acme, Depleted: 1, Low: 2}, {TenantID: globex, Low: 5}}, nil
		}),
	})
	require.NoError(t, err)

	require.NoError(t, im.CollectStock(context.Background()))
	assert.Equal(t, int64(3), threshold)

	gauges := func(name string) map[string]int64 {
		out := map[string]int64{}
		for _, dp := range collect(t, reader, name).Data.(metricdata.Gauge[int64]).DataPoints {
			v, _ := dp.Attributes.Value(AttrTenantID)
			out[v.AsString()] = dp.Value
		}
		return out
	}
	assert.Equal(t, map[string]int64{acme.String(): 1, globex.String(): 0}, gauges("invoicing_inventory_depleted_count"))
	assert.Equal(t, map[string]int64{acme.String(): 2, globex.String(): 5}, gauges("invoicing_inventory_low_stock_count"))
}

func TestInvoiceMetrics_CollectStockErrors(t *testing.T) {
	im, err := NewInvoiceMetrics(InvoiceMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
		Census: censusFunc(func(context.Context, int64) ([]StockCount, error) {
			return nil, errors.New("db down")
		}),
	})
	require.NoError(t, err)
	assert.ErrorContains(t, im.CollectStock(context.Background()), "db down")

	im, err = NewInvoiceMetrics(InvoiceMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	assert.NoError(t, im.CollectStock(context.Background()), "no census configured")
}
