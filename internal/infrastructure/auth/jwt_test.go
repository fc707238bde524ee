package auth

import (
	"testing"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

var issuedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestJWTService pins the clock to issuedAt; tests move it through svc.now.
func newTestJWTService() *JWTService {
	svc := NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "invoicing",
	})
	svc.now = func() time.Time { return issuedAt }
	return svc
}

func ada() GenerateTokenInput {
	return GenerateTokenInput{
		TenantID: uuid.MustParse("6c1f0b8e-2a43-4d59-8a1e-5b0f3f3f9a10"),
		UserID:   uuid.MustParse("0e5e8a2d-9b8f-4a55-b7c2-7f0a4c1d2e33"),
		Username: "ada@example.com",
		Role:     "admin",
	}
}

// sign issues a token from hand-built claims, valid at issuedAt unless overridden.
func sign(t *testing.T, method jwt.SigningMethod, key any, edit func(*Claims)) string {
	t.Helper()
	c := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "invoicing",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		TenantID: uuid.NewString(),
		UserID:   uuid.NewString(),
	}
	if edit != nil {
		edit(c)
	}
	raw, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestNewJWTService_DefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: testSecret})
	assert.Equal(t, time.Hour, svc.ttl)
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateToken(ada())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, issuedAt.Add(15*time.Minute), token.ExpiresAt)

	claims, err := svc.ValidateAccessToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, ada().TenantID.String(), claims.TenantID)
	assert.Equal(t, ada().UserID.String(), claims.UserID)
	assert.Equal(t, ada().UserID.String(), claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "invoicing", claims.Issuer)
	assert.Equal(t, 15*time.Minute, claims.RemainingTTL(issuedAt))

	again, err := svc.GenerateToken(ada())
	require.NoError(t, err)
	other, err := svc.ValidateAccessToken(again.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, other.ID, "every token gets its own jti")
}

func TestValidateAccessToken_Expiry(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.GenerateToken(ada())
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(15*time.Minute + clockSkew - time.Second) }
	_, err = svc.ValidateAccessToken(token.AccessToken)
	assert.NoError(t, err, "inside the tolerated skew")

	svc.now = func() time.Time { return issuedAt.Add(16 * time.Minute) }
	_, err = svc.ValidateAccessToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  error
	}{
		{"garbage", func(*testing.T) string { return "invalid-token" }, ErrInvalidToken},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("a-completely-different-secret-key"), nil)
		}, ErrInvalidToken},
		{"none algorithm", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, nil)
		}, ErrInvalidToken},
		{"HS512", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS512, []byte(testSecret), nil)
		}, ErrInvalidToken},
		{"foreign issuer", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), func(c *Claims) { c.Issuer = "elsewhere" })
		}, ErrInvalidToken},
		{"no expiry", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), func(c *Claims) { c.ExpiresAt = nil })
		}, ErrInvalidToken},
		{"not yet valid", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), func(c *Claims) {
				c.NotBefore = jwt.NewNumericDate(issuedAt.Add(time.Minute))
			})
		}, ErrTokenNotYetValid},
		{"missing tenant", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), func(c *Claims) { c.TenantID = "" })
		}, ErrMissingTenantID},
		{"missing user", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), func(c *Claims) { c.UserID = "" })
		}, ErrMissingUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestJWTService().ValidateAccessToken(tt.token(t))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := newTestJWTService().ValidateAccessToken(
		sign(t, jwt.SigningMethodHS256, []byte(testSecret), func(c *Claims) { c.UserID = "" }))
	assert.ErrorIs(t, err, ErrInvalidClaims, "missing ids are claim errors")
}

func TestClaims_AuthContext(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.GenerateToken(ada())
	require.NoError(t, err)
	claims, err := svc.ValidateAccessToken(token.AccessToken)
	require.NoError(t, err)

	actor, err := claims.AuthContext()
	require.NoError(t, err)
	assert.Equal(t, ada().TenantID, actor.TenantID)
	assert.Equal(t, ada().UserID, actor.UserID)
	assert.Equal(t, "ada@example.com", actor.Username)
	assert.NoError(t, actor.RequireUser())

	_, err = (&Claims{TenantID: "not-a-uuid", UserID: uuid.NewString()}).AuthContext()
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestClaims_RemainingTTL(t *testing.T) {
	assert.Zero(t, (&Claims{}).RemainingTTL(issuedAt))

	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Minute))}}
	assert.Equal(t, time.Minute, c.RemainingTTL(issuedAt))
	assert.Zero(t, c.RemainingTTL(issuedAt.Add(time.Hour)))
}
