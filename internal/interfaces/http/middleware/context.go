// Package middleware holds the gin middleware chain of the invoicing API.
package middleware

import (
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// gin context keys
const (
	RequestIDKey   = logger.GinRequestIDKey
	AuthContextKey = "auth_context"
	ClaimsKey      = "jwt_claims"

	RequestIDHeader = "X-Request-ID"
)

// GetRequestID returns the ID assigned by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// GetAuthContext returns the caller identity set by JWTAuth
func GetAuthContext(c *gin.Context) (shared.AuthContext, bool) {
	v, ok := c.Get(AuthContextKey)
	if !ok {
		return shared.AuthContext{}, false
	}
	actor, ok := v.(shared.AuthContext)
	return actor, ok
}

// GetClaims returns the validated token claims set by JWTAuth
func GetClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// abort stops the chain with an error envelope
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
