package partner

import (
	"context"
	"errors"

	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PasswordHasher hashes plaintext passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// ProfileService manages staff profiles
type ProfileService struct {
	profileRepo partner.ProfileRepository
	hasher      PasswordHasher
	logger      *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo partner.ProfileRepository, hasher PasswordHasher, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		profileRepo: profileRepo,
		hasher:      hasher,
		logger:      logger,
	}
}

// Create adds a staff profile to tenantID. Email addresses are unique across tenants
// because sign-in looks profiles up by email alone.
func (s *ProfileService) Create(ctx context.Context, tenantID uuid.UUID, req CreateProfileRequest) (*ProfileResponse, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}

	existing, err := s.profileRepo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A profile with this email already exists")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password cannot be used")
	}

	role := partner.ProfileRole(req.Role)
	if role == "" {
		role = partner.ProfileRoleStaff
	}
	profile, err := partner.NewProfile(tenantID, req.FullName, req.Email, role, hash)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("profile created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("profile_id", profile.ID.String()),
		zap.String("role", string(profile.Role)),
	)

	response := ToProfileResponse(profile)
	return &response, nil
}

// Get retrieves a profile by ID
func (s *ProfileService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*ProfileResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.FindByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	response := ToProfileResponse(profile)
	return &response, nil
}

// Me returns the caller's own profile
func (s *ProfileService) Me(ctx context.Context, actor shared.AuthContext) (*ProfileResponse, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, actor.UserID)
}

// List returns a page of profiles in the caller's tenant
func (s *ProfileService) List(ctx context.Context, actor shared.AuthContext, filter ProfileListFilter) ([]ProfileResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.OrderBy = "full_name"
	domainFilter.OrderDir = "asc"
	domainFilter.Search = filter.Search

	profiles, err := s.profileRepo.FindAll(ctx, actor, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToProfileResponses(profiles), nil
}
