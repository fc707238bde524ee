package partner

import (
	"net/mail"
	"strings"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
)

// ProfileRole is the staff role of a profile
type ProfileRole string

const (
	ProfileRoleAdmin ProfileRole = "admin"
	ProfileRoleStaff ProfileRole = "staff"
)

// IsValid reports whether the role is known
func (r ProfileRole) IsValid() bool {
	return r == ProfileRoleAdmin || r == ProfileRoleStaff
}

// Profile is a staff member who signs in and creates invoices.
// The profile ID is the user ID carried in AuthContext.
type Profile struct {
	shared.TenantAggregateRoot
	FullName     string
	Email        string
	Role         ProfileRole
	PasswordHash string
}

// NewProfile creates a profile. passwordHash must already be hashed.
func NewProfile(tenantID uuid.UUID, fullName, email string, role ProfileRole, passwordHash string) (*Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be admin or staff")
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password is required")
	}

	p := &Profile{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(shared.AuthContext{TenantID: tenantID}),
		FullName:            fullName,
		Email:               email,
		Role:                role,
		PasswordHash:        passwordHash,
	}
	// a profile owns itself
	p.CreatedBy = &p.ID
	return p, nil
}
