package inventory

import (
	"context"
	"fmt"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultLowStockThreshold is the remaining quantity at or below which an alert is raised
const DefaultLowStockThreshold int64 = 5

// StockAlert represents a stock level alert
type StockAlert struct {
	TenantID        string `json:"tenant_id"`
	InventoryItemID string `json:"inventory_item_id"`
	Name            string `json:"name"`
	Remaining       int64  `json:"remaining"`
	Threshold       int64  `json:"threshold"`
	InvoiceNumber   string `json:"invoice_number,omitempty"`
	AlertType       string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// StockAlertNotifier sends stock alerts
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockEventHandler reacts to stock changes: it drops cached lookups for the
// tenant and raises an alert when an invoice leaves an item low or empty.
type StockEventHandler struct {
	service   *InventoryService
	notifier  StockAlertNotifier
	threshold int64
	logger    *zap.Logger
}

// NewStockEventHandler creates a new handler for stock events
func NewStockEventHandler(service *InventoryService, threshold int64, logger *zap.Logger) *StockEventHandler {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockEventHandler{
		service:   service,
		threshold: threshold,
		logger:    logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *StockEventHandler) WithNotifier(notifier StockAlertNotifier) *StockEventHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockEventHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeItemCreated,
		inventory.EventTypeStockDecremented,
		inventory.EventTypeStockRestored,
	}
}

// Handle processes a stock event
func (h *StockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.service != nil {
		h.service.Invalidate(ctx, event.TenantID())
	}

	switch e := event.(type) {
	case *inventory.StockDecrementedEvent:
		if e.Remaining > h.threshold {
			return nil
		}
		alertType := "low_stock"
		if e.Remaining == 0 {
			alertType = "out_of_stock"
		}
		h.alert(ctx, StockAlert{
			TenantID:        event.TenantID().String(),
			InventoryItemID: e.InventoryItemID.String(),
			Name:            e.Name,
			Remaining:       e.Remaining,
			Threshold:       h.threshold,
			InvoiceNumber:   e.InvoiceNumber,
			AlertType:       alertType,
		})
		return nil
	case *inventory.ItemCreatedEvent, *inventory.StockRestoredEvent:
		return nil
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *StockEventHandler) alert(ctx context.Context, alert StockAlert) {
	h.logger.Warn("stock below threshold",
		zap.String("tenant_id", alert.TenantID),
		zap.String("inventory_item_id", alert.InventoryItemID),
		zap.String("alert_type", alert.AlertType),
		zap.Int64("remaining", alert.Remaining),
	)
	if h.notifier == nil {
		return
	}
	// notification failure must not fail event handling
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		h.logger.Error("failed to send stock alert notification",
			zap.String("inventory_item_id", alert.InventoryItemID),
			zap.Error(err),
		)
	}
}

var _ shared.EventHandler = (*StockEventHandler)(nil)

// LoggingStockAlertNotifier logs alerts; the default when no channel is configured
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{logger: logger}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("item", alert.Name),
		zap.Int64("remaining", alert.Remaining),
		zap.String("invoice_number", alert.InvoiceNumber),
	)
	return nil
}
