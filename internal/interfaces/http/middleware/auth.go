package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// JWTConfig configures JWTAuth
type JWTConfig struct {
	JWTService *auth.JWTService
	// Blacklist is optional; without it signed-out tokens stay valid until they expire
	Blacklist auth.TokenBlacklist
	Logger    *zap.Logger
}

// JWTAuth validates the bearer token and stores the caller's AuthContext.
// Every route behind it can rely on GetAuthContext succeeding.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			log.Debug("token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			code, message := tokenError(err)
			abort(c, http.StatusUnauthorized, code, message)
			return
		}

		if cfg.Blacklist != nil && claims.ID != "" {
			revoked, err := cfg.Blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				// fail open: an unreachable blacklist must not lock everyone out
				log.Error("token blacklist check failed", zap.String("jti", claims.ID), zap.Error(err))
			case revoked:
				abort(c, http.StatusUnauthorized, dto.ErrCodeTokenRevoked, "Token has been revoked")
				return
			}
		}

		actor, err := claims.AuthContext()
		if err != nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(AuthContextKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func tokenError(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token is not yet valid"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}
