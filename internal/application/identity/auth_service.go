package identity

import (
	"context"
	"errors"

	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// PasswordVerifier checks a plaintext password against a stored hash
type PasswordVerifier interface {
	Verify(hash, password string) bool
}

// unknownEmailHash is compared against when no profile matches so that
// unknown and known emails take about the same time to reject.
const unknownEmailHash = "$2a$12$C6UzMDM.H6dfI/f/IKcEeO5bH6QzDbyU0Rm8vZNQZ5x8Z7y8pQ3aW"

// AuthService handles sign-in and sign-out
type AuthService struct {
	profileRepo partner.ProfileRepository
	verifier    PasswordVerifier
	jwtService  *auth.JWTService
	blacklist   auth.TokenBlacklist
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	profileRepo partner.ProfileRepository,
	verifier PasswordVerifier,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		profileRepo: profileRepo,
		verifier:    verifier,
		jwtService:  jwtService,
		blacklist:   blacklist,
		logger:      logger,
	}
}

func invalidCredentials() error {
	return shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
}

// Login verifies the profile's password and issues an access token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("email", input.Email))

	profile, err := s.profileRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Profile lookup failed during login", zap.Error(err))
			return nil, err
		}
		s.verifier.Verify(unknownEmailHash, input.Password)
		s.logger.Warn("Profile not found during login", zap.String("email", input.Email))
		return nil, invalidCredentials()
	}

	if !s.verifier.Verify(profile.PasswordHash, input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("email", input.Email))
		return nil, invalidCredentials()
	}

	token, err := s.jwtService.GenerateToken(auth.GenerateTokenInput{
		TenantID: profile.TenantID,
		UserID:   profile.ID,
		Username: profile.Email,
		Role:     string(profile.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	s.logger.Info("User logged in successfully",
		zap.String("email", profile.Email),
		zap.String("user_id", profile.ID.String()))

	return &LoginResult{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User: UserInfo{
			ID:       profile.ID,
			TenantID: profile.TenantID,
			FullName: profile.FullName,
			Email:    profile.Email,
			Role:     string(profile.Role),
		},
	}, nil
}

// Logout revokes the presented token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.blacklist == nil || input.TokenJTI == "" {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.RemainingTTL); err != nil {
		s.logger.Error("Failed to revoke token", zap.String("jti", input.TokenJTI), zap.Error(err))
		return err
	}
	s.logger.Info("Token revoked", zap.String("jti", input.TokenJTI))
	return nil
}
