package shared

import (
	"github.com/google/uuid"
)

// AuthContext identifies who is acting. It is passed explicitly into every
// application and repository call that reads or writes tenant data.
type AuthContext struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Username string
}

// NewAuthContext builds an AuthContext from already-parsed identifiers
func NewAuthContext(tenantID, userID uuid.UUID, username string) AuthContext {
	return AuthContext{TenantID: tenantID, UserID: userID, Username: username}
}

// Validate requires a tenant. A missing user is allowed for system jobs.
func (a AuthContext) Validate() error {
	if a.TenantID == uuid.Nil {
		return ErrUnauthorized
	}
	return nil
}

// RequireUser requires both tenant and user
func (a AuthContext) RequireUser() error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.UserID == uuid.Nil {
		return ErrUnauthorized
	}
	return nil
}

// IsSystem reports whether the context has no user (background jobs)
func (a AuthContext) IsSystem() bool {
	return a.UserID == uuid.Nil
}
