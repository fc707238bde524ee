package middleware

import (
	"net/http"
	"slices"

	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RequireRole admits callers whose token carries one of roles. It must run
// after JWTAuth.
func RequireRole(roles ...partner.ProfileRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !slices.Contains(roles, partner.ProfileRole(claims.Role)) {
			abort(c, http.StatusForbidden, dto.ErrCodeForbidden, "Your role does not allow this action")
			return
		}
		c.Next()
	}
}
