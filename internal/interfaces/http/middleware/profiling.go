package middleware

import (
	"context"
	"strings"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags CPU samples taken while serving a request with its route,
// method, resource and tenant so Pyroscope can slice by them. Place it after
// JWTAuth to get the tenant label.
func Profiling(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || c.FullPath() == "" {
			c.Next()
			return
		}
		tenantID := ""
		if actor, ok := GetAuthContext(c); ok {
			tenantID = actor.TenantID.String()
		}
		labels := telemetry.HTTPRequestLabels(resourceOf(c.FullPath()), c.FullPath(), c.Request.Method, tenantID)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf returns the first static segment after the version:
// "/api/v1/invoices/:id/items" -> "invoices"
func resourceOf(route string) string {
	for _, seg := range strings.Split(route, "/") {
		if seg == "" || seg == "api" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") || isVersion(seg) {
			continue
		}
		return seg
	}
	return ""
}

func isVersion(seg string) bool {
	if len(seg) < 2 || (seg[0] != 'v' && seg[0] != 'V') {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
