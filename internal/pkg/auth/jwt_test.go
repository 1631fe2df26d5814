package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "storefront-test"
	cfg.JWT.Secret = "test-secret-key-not-for-production"
	cfg.JWT.AccessTokenExpiry = 15 * time.Minute
	cfg.JWT.RefreshTokenExpiry = 7 * 24 * time.Hour
	return cfg
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateAccessToken(42, "jane@example.com", true)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, "jane@example.com", claims.Email)
	require.True(t, claims.IsAdmin)
	require.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateRefreshToken(42, "jane@example.com")
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(token)
	require.Error(t, err)

	claims, err := manager.ValidateRefreshToken(token)
	require.NoError(t, err)
	require.False(t, claims.IsAdmin, "refresh tokens never carry admin status")
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateAccessToken(42, "jane@example.com", false)
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWT.Secret = "a-different-secret-entirely"
	other := NewJWTManager(otherCfg)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	require.Equal(t, "abc123", ExtractTokenFromHeader("Bearer abc123"))
	require.Equal(t, "", ExtractTokenFromHeader("abc123"))
	require.Equal(t, "", ExtractTokenFromHeader(""))
	require.Equal(t, "", ExtractTokenFromHeader("Bearer "))
}
