package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormStockCensus counts stock health straight from inventory_items, one
// grouped query for every tenant.
type GormStockCensus struct {
	db *gorm.DB
}

var _ StockCensus = (*GormStockCensus)(nil)

func NewGormStockCensus(db *gorm.DB) *GormStockCensus {
	return &GormStockCensus{db: db}
}

func (g *GormStockCensus) CountStock(ctx context.Context, lowThreshold int64) ([]StockCount, error) {
	var counts []StockCount
	err := g.db.WithContext(ctx).
		Table("inventory_items").
		Select(`tenant_id,
			SUM(CASE WHEN available_quantity = 0 THEN 1 ELSE 0 END) AS depleted,
			SUM(CASE WHEN available_quantity > 0 AND available_quantity <= ? THEN 1 ELSE 0 END) AS low`, lowThreshold).
		Group("tenant_id").
		Order("tenant_id").
		Scan(&counts).Error
	return counts, err
}
