package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestTracing_RecordsRouteSpans(t *testing.T) {
	recorder := withRecorder(t)

	r := gin.New()
	r.Use(RequestID(), Tracing("invoicing-test", true), SpanAttributes())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/invoices/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	perform(r, http.MethodGet, "/health", nil)
	perform(r, http.MethodGet, "/api/v1/invoices/7", map[string]string{RequestIDHeader: "trace-req"})

	spans := recorder.Ended()
	require.Len(t, spans, 1, "health checks are not traced")
	span := spans[0]
	assert.Contains(t, span.Name(), "/api/v1/invoices/:id")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("request_id", "trace-req"))
}

func TestTracing_Disabled(t *testing.T) {
	recorder := withRecorder(t)

	r := gin.New()
	r.Use(Tracing("invoicing-test", false), SpanAttributes())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", nil).Code)
	assert.Empty(t, recorder.Ended())
}
