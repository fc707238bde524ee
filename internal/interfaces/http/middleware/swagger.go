package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SwaggerGuard serves the API docs only when enabled and, if allowedIPs is
// non-empty, only to clients whose IP matches an entry (plain IP or CIDR).
// Unparsable entries are ignored.
func SwaggerGuard(enabled bool, allowedIPs []string) gin.HandlerFunc {
	var nets []*net.IPNet
	for _, entry := range allowedIPs {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 8 * len(ip.To4())
				if bits == 0 {
					bits = 128
				}
				entry += "/" + strconv.Itoa(bits)
			}
		}
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
		}
	}

	return func(c *gin.Context) {
		if !enabled {
			abort(c, http.StatusNotFound, dto.ErrCodeNotFound, "API documentation is not available")
			return
		}
		if len(allowedIPs) > 0 && !ipAllowed(net.ParseIP(c.ClientIP()), nets) {
			abort(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access to API documentation is restricted")
			return
		}
		c.Next()
	}
}

func ipAllowed(ip net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
