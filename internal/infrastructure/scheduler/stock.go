package scheduler

import "context"

const JobStockGauges = "stock_gauges"

// StockCollector refreshes stock health gauges
type StockCollector interface {
	CollectStock(ctx context.Context) error
}

func NewStockGaugeExecutor(c StockCollector) Executor {
	return ExecutorFunc(func(ctx context.Context, _ *Run) error {
		return c.CollectStock(ctx)
	})
}
