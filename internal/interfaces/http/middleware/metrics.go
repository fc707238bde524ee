package middleware

import (
	"time"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// invoice PDFs dominate the upper buckets
var responseSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}

// HTTPMetrics records request count, latency, response size and in-flight
// requests per route. A nil meter disables it.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}

	in := telemetry.NewInstruments(meter)
	requests := in.Counter("http_server_request_total", "{request}", "HTTP requests served")
	latency := in.Histogram("http_server_request_duration_seconds", "s", "HTTP request latency", telemetry.HTTPDurationBuckets...)
	size := in.Histogram("http_server_response_size_bytes", "By", "HTTP response body size", responseSizeBuckets...)
	active := in.UpDown("http_server_active_requests", "{request}", "In-flight HTTP requests")
	if err := in.Err(); err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		active.Add(ctx, 1)
		defer active.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
		latency.Observe(ctx, time.Since(start), attrs...)
		if n := c.Writer.Size(); n > 0 {
			size.Record(ctx, float64(n), attrs...)
		}
	}, nil
}
