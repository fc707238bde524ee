package identity

import (
	"time"

	"github.com/google/uuid"
)

// LoginInput contains sign-in credentials
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is returned on successful sign-in
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the signed-in profile
type UserInfo struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// LogoutInput identifies the token being revoked
type LogoutInput struct {
	TokenJTI     string
	RemainingTTL time.Duration
}
