package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/infrastructure/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:  true,
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "settlement-backend",
		TokenTTL: time.Hour,
	}
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService(testAuthConfig())
	operatorID := uuid.New()

	token, expiresAt, err := svc.Issue(operatorID, "Maria Santos", []string{"cashier"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID.String(), claims.OperatorID)
	assert.Equal(t, "Maria Santos", claims.Name)
	assert.True(t, claims.HasRole("cashier"))
	assert.False(t, claims.HasRole("manager"))

	parsed, err := claims.OperatorUUID()
	require.NoError(t, err)
	assert.Equal(t, operatorID, parsed)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	cfg := testAuthConfig()
	cfg.TokenTTL = -time.Minute
	svc := NewTokenService(cfg)

	token, _, err := svc.Issue(uuid.New(), "", nil)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	svc := NewTokenService(testAuthConfig())
	token, _, err := svc.Issue(uuid.New(), "", nil)
	require.NoError(t, err)

	other := testAuthConfig()
	other.Secret = "ffffffffffffffffffffffffffffffff"
	_, err = NewTokenService(other).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := NewTokenService(testAuthConfig())
	_, err := svc.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
