package partner

import (
	"context"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientRepository defines persistence for clients
type ClientRepository interface {
	FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*Client, error)
	FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]Client, error)
	Count(ctx context.Context, actor shared.AuthContext, filter shared.Filter) (int64, error)
	ExistsByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (bool, error)
	Save(ctx context.Context, client *Client) error
}

// ProfileRepository defines persistence for staff profiles
type ProfileRepository interface {
	FindByID(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*Profile, error)

	// FindByEmail looks up a profile across tenants; used only by sign-in
	FindByEmail(ctx context.Context, email string) (*Profile, error)

	FindAll(ctx context.Context, actor shared.AuthContext, filter shared.Filter) ([]Profile, error)
	Save(ctx context.Context, profile *Profile) error
}
