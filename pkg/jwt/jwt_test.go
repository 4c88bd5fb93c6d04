package jwt

import (
	"testing"
	"time"

	"go-cleaning-booking/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s3cret", Issuer: "ops", AccessExpiry: time.Minute})

	token, err := svc.GenerateAccessToken("ops-7", RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-7", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s3cret", Issuer: "ops", AccessExpiry: time.Minute})

	other := NewJWTService(config.JWTConfig{Secret: "other", Issuer: "ops", AccessExpiry: time.Minute})
	token, err := other.GenerateAccessToken("ops-7", RoleAdmin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err, "wrong key")

	wrongIssuer := NewJWTService(config.JWTConfig{Secret: "s3cret", Issuer: "elsewhere", AccessExpiry: time.Minute})
	token, err = wrongIssuer.GenerateAccessToken("ops-7", RoleAdmin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err, "wrong issuer")

	expired := NewJWTService(config.JWTConfig{Secret: "s3cret", Issuer: "ops", AccessExpiry: -time.Minute})
	token, err = expired.GenerateAccessToken("ops-7", RoleAdmin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err, "expired")

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
