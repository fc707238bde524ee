package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingTenantID  = fmt.Errorf("%w: tenant_id is missing", ErrInvalidClaims)
	ErrMissingUserID    = fmt.Errorf("%w: user_id is missing", ErrInvalidClaims)
)

// clockSkew tolerated on exp, nbf and iat
const clockSkew = 5 * time.Second

// Claims is the access token payload. The registered ID (jti) keys the
// revocation blacklist.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
}

type GenerateTokenInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Username string
	Role     string
}

// JWTService issues and verifies HS256 access tokens.
type JWTService struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTService builds the service from cfg. A non-positive expiration means
// one hour; an empty issuer disables the iss check.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	s := &JWTService{
		key:    []byte(cfg.Secret),
		ttl:    cfg.AccessTokenExpiration,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(opts...)
	return s
}

func (s *JWTService) GenerateToken(in GenerateTokenInput) (*IssuedToken, error) {
	issued := s.now()
	expires := issued.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		TenantID: in.TenantID.String(),
		UserID:   in.UserID.String(),
		Username: in.Username,
		Role:     in.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &IssuedToken{AccessToken: signed, ExpiresAt: expires, TokenType: "Bearer"}, nil
}

// ValidateAccessToken verifies signature, algorithm, issuer and time claims.
// Errors wrap ErrExpiredToken, ErrTokenNotYetValid, ErrInvalidClaims or
// ErrInvalidToken.
func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.TenantID == "":
		return nil, ErrMissingTenantID
	case claims.UserID == "":
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// AuthContext converts the claims into the caller identity passed to services.
func (c *Claims) AuthContext() (shared.AuthContext, error) {
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return shared.AuthContext{}, fmt.Errorf("%w: tenant_id: %v", ErrInvalidClaims, err)
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return shared.AuthContext{}, fmt.Errorf("%w: user_id: %v", ErrInvalidClaims, err)
	}
	return shared.NewAuthContext(tenantID, userID, c.Username), nil
}

// RemainingTTL is how long the token stays valid after now; never negative.
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
