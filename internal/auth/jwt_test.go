package auth_test

import (
	"testing"
	"time"

	"tresesenta/config"
	"tresesenta/internal/auth"
	"tresesenta/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "s3cret", AccessExpiry: time.Hour, Issuer: "tresesenta"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := auth.GenerateAccessToken(cfg, 42, "ana@example.com", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "ana@example.com", claims.Email)
	require.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestParseRejectsBadTokens(t *testing.T) {
	cfg := testConfig()

	expired := &config.JWTConfig{AccessSecret: cfg.AccessSecret, AccessExpiry: -time.Minute, Issuer: cfg.Issuer}
	tok, err := auth.GenerateAccessToken(expired, 1, "a@example.com", domain.RoleUser)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(cfg, tok)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	other := &config.JWTConfig{AccessSecret: "other", AccessExpiry: time.Hour, Issuer: cfg.Issuer}
	tok, err = auth.GenerateAccessToken(other, 1, "a@example.com", domain.RoleUser)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(cfg, tok)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	foreign := &config.JWTConfig{AccessSecret: cfg.AccessSecret, AccessExpiry: time.Hour, Issuer: "someone-else"}
	tok, err = auth.GenerateAccessToken(foreign, 1, "a@example.com", domain.RoleUser)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(cfg, tok)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(cfg, none)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
