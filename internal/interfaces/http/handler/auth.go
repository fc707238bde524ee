package handler

import (
	"net/http"
	"time"

	"github.com/erp/invoicing/internal/application/identity"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles sign-in and sign-out
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @ID           login
// @Summary      Sign in
// @Description  Exchanges email and password for a bearer access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.LoginInput true "Credentials"
// @Success      200 {object} APIResponse[identity.LoginResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var input identity.LoginInput
	if !bindJSON(c, &input) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	respond(c, http.StatusOK, result)
}

// Logout godoc
// @ID           logout
// @Summary      Sign out
// @Description  Revokes the presented access token until it would have expired
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		unauthenticated(c)
		return
	}

	err := h.auth.Logout(c.Request.Context(), identity.LogoutInput{
		TokenJTI:     claims.ID,
		RemainingTTL: claims.RemainingTTL(time.Now()),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
