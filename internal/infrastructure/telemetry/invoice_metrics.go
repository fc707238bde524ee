package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var ErrNoMeter = errors.New("invoice metrics: meter is required")

// StockCount is one tenant's stock health at collection time.
type StockCount struct {
	TenantID uuid.UUID
	Depleted int64
	Low      int64
}

// StockCensus counts depleted and low stock items per tenant.
type StockCensus interface {
	CountStock(ctx context.Context, lowThreshold int64) ([]StockCount, error)
}

type InvoiceMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	// Census feeds the stock gauges on CollectStock; nil leaves them unset
	Census            StockCensus
	LowStockThreshold int64
}

// InvoiceMetrics tracks submissions and stock health. Record methods accept a
// nil receiver so services run unchanged without metrics.
type InvoiceMetrics struct {
	created  *Counter
	amount   *Counter
	lines    *Counter
	failed   *Counter
	overdue  *Counter
	depleted *Gauge
	lowStock *Gauge

	census    StockCensus
	threshold int64
	logger    *zap.Logger
}

func NewInvoiceMetrics(cfg InvoiceMetricsConfig) (*InvoiceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrNoMeter
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}

	in := NewInstruments(cfg.Meter)
	im := &InvoiceMetrics{
		created:  in.Counter("invoicing_invoice_created_total", "{invoice}", "Invoices submitted"),
		amount:   in.Counter("invoicing_invoice_amount_total", "{cent}", "Invoiced amount in cents"),
		lines:    in.Counter("invoicing_line_items_total", "{item}", "Invoice line items submitted"),
		failed:   in.Counter("invoicing_submission_failed_total", "{invoice}", "Rejected or rolled back submissions by reason"),
		overdue:  in.Counter("invoicing_invoice_overdue_total", "{invoice}", "Invoices moved to overdue"),
		depleted: in.Gauge("invoicing_inventory_depleted_count", "{item}", "Inventory items with no available stock"),
		lowStock: in.Gauge("invoicing_inventory_low_stock_count", "{item}", "Inventory items at or below the low stock threshold"),

		census:    cfg.Census,
		threshold: cfg.LowStockThreshold,
		logger:    cfg.Logger,
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return im, nil
}

func (im *InvoiceMetrics) RecordInvoiceCreated(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal, itemCount int) {
	if im == nil {
		return
	}
	tenant := AttrTenantID.String(tenantID.String())
	im.created.Inc(ctx, tenant)
	im.amount.Add(ctx, amount.Shift(2).IntPart(), tenant)
	im.lines.Add(ctx, int64(itemCount), tenant)
}

// RecordSubmissionFailed counts a failed submission; reason must be low
// cardinality, typically the domain error code.
func (im *InvoiceMetrics) RecordSubmissionFailed(ctx context.Context, tenantID uuid.UUID, reason string) {
	if im == nil {
		return
	}
	im.failed.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrFailureReason.String(reason))
}

func (im *InvoiceMetrics) RecordOverdueMarked(ctx context.Context, count int64) {
	if im == nil || count <= 0 {
		return
	}
	im.overdue.Add(ctx, count)
}

// CollectStock refreshes the per-tenant stock gauges from the census.
func (im *InvoiceMetrics) CollectStock(ctx context.Context) error {
	if im == nil || im.census == nil {
		return nil
	}
	counts, err := im.census.CountStock(ctx, im.threshold)
	if err != nil {
		return fmt.Errorf("stock census: %w", err)
	}
	for _, c := range counts {
		tenant := AttrTenantID.String(c.TenantID.String())
		im.depleted.Set(ctx, c.Depleted, tenant)
		im.lowStock.Set(ctx, c.Low, tenant)
	}
	im.logger.Debug("Stock gauges refreshed", zap.Int("tenants", len(counts)))
	return nil
}
