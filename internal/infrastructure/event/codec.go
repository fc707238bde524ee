package event

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/erp/invoicing/internal/domain/inventory"
	"github.com/erp/invoicing/internal/domain/invoice"
	"github.com/erp/invoicing/internal/domain/shared"
)

// Codec turns events into outbox payloads and back. Decoding needs a
// concrete type, so each event type stored in the outbox has a constructor.
type Codec struct {
	mu    sync.RWMutex
	kinds map[string]func() shared.DomainEvent
}

func NewCodec() *Codec {
	return &Codec{kinds: make(map[string]func() shared.DomainEvent)}
}

// DomainCodec knows every invoice and inventory event.
func DomainCodec() *Codec {
	c := NewCodec()
	Bind(c, invoice.EventTypeInvoiceCreated, func() *invoice.InvoiceCreatedEvent { return new(invoice.InvoiceCreatedEvent) })
	Bind(c, invoice.EventTypeInvoiceUpdated, func() *invoice.InvoiceUpdatedEvent { return new(invoice.InvoiceUpdatedEvent) })
	Bind(c, invoice.EventTypeInvoiceStatusChanged, func() *invoice.InvoiceStatusChangedEvent { return new(invoice.InvoiceStatusChangedEvent) })
	Bind(c, inventory.EventTypeItemCreated, func() *inventory.ItemCreatedEvent { return new(inventory.ItemCreatedEvent) })
	Bind(c, inventory.EventTypeStockDecremented, func() *inventory.StockDecrementedEvent { return new(inventory.StockDecrementedEvent) })
	Bind(c, inventory.EventTypeStockRestored, func() *inventory.StockRestoredEvent { return new(inventory.StockRestoredEvent) })
	Bind(c, inventory.EventTypeStockDepleted, func() *inventory.StockDepletedEvent { return new(inventory.StockDepletedEvent) })
	return c
}

// Bind registers the constructor used to decode eventType. A later Bind for
// the same type replaces the earlier one.
func Bind[E shared.DomainEvent](c *Codec, eventType string, zero func() E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds[eventType] = func() shared.DomainEvent { return zero() }
}

func (c *Codec) Encode(evt shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}
	return data, nil
}

func (c *Codec) Decode(eventType string, payload []byte) (shared.DomainEvent, error) {
	c.mu.RLock()
	zero, ok := c.kinds[eventType]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	evt := zero()
	if err := json.Unmarshal(payload, evt); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return evt, nil
}

// Types lists the bound event types in sorted order.
func (c *Codec) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	types := make([]string, 0, len(c.kinds))
	for t := range c.kinds {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
