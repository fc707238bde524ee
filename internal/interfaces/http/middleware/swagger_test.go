package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(enabled bool, allowed []string) *gin.Engine {
	r := gin.New()
	r.GET("/swagger/*any", SwaggerGuard(enabled, allowed), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func swaggerFrom(r *gin.Engine, addr string) int {
	req := httptestRequest(http.MethodGet, "/swagger/index.html", "")
	req.RemoteAddr = addr
	return serve(r, req).Code
}

func TestSwaggerGuard(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, swaggerFrom(swaggerRouter(false, nil), "127.0.0.1:5000"))
	})

	t.Run("open to all", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, swaggerFrom(swaggerRouter(true, nil), "203.0.113.9:5000"))
	})

	t.Run("allow list", func(t *testing.T) {
		r := swaggerRouter(true, []string{"127.0.0.1", "10.1.0.0/16", "::1", "not-an-ip"})
		assert.Equal(t, http.StatusOK, swaggerFrom(r, "127.0.0.1:5000"))
		assert.Equal(t, http.StatusOK, swaggerFrom(r, "10.1.42.7:5000"))
		assert.Equal(t, http.StatusOK, swaggerFrom(r, "[::1]:5000"))
		assert.Equal(t, http.StatusForbidden, swaggerFrom(r, "10.2.0.1:5000"))
	})
}
