package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	engine := NewTokenEngine("test-secret", 30*time.Minute, nil)

	token, expiresAt, err := engine.GenerateToken(42, "87471234567")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	claims, err := engine.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "87471234567", claims.Phone)
	assert.Equal(t, "bellybank-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewTokenEngine("secret-a", 30*time.Minute, nil)
	verifier := NewTokenEngine("secret-b", 30*time.Minute, nil)

	token, _, err := issuer.GenerateToken(1, "87001112233")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	engine := NewTokenEngine("test-secret", -time.Minute, nil)

	token, _, err := engine.GenerateToken(1, "87001112233")
	require.NoError(t, err)

	_, err = engine.ValidateToken(token)
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	engine := NewTokenEngine("test-secret", 30*time.Minute, nil)

	original, _, err := engine.GenerateToken(7, "87001112233")
	require.NoError(t, err)

	refreshed, _, err := engine.RefreshToken(original)
	require.NoError(t, err)

	claims, err := engine.ValidateToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "87001112233", claims.Phone)
}

func TestRevokeToken(t *testing.T) {
	engine := NewTokenEngine("test-secret", 30*time.Minute, nil)

	token, _, err := engine.GenerateToken(3, "87001112233")
	require.NoError(t, err)

	require.NoError(t, engine.RevokeToken(token))

	_, err = engine.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoked")

	// A revoked token cannot be refreshed either.
	_, _, err = engine.RefreshToken(token)
	assert.Error(t, err)
}

func TestCleanupExpiredRevocations(t *testing.T) {
	engine := NewTokenEngine("test-secret", 30*time.Minute, nil)

	engine.mu.Lock()
	engine.revokedTokens["expired"] = time.Now().Add(-time.Hour)
	engine.revokedTokens["live"] = time.Now().Add(time.Hour)
	engine.mu.Unlock()

	removed := engine.CleanupExpiredRevocations()
	assert.Equal(t, 1, removed)

	engine.mu.RLock()
	defer engine.mu.RUnlock()
	assert.Contains(t, engine.revokedTokens, "live")
	assert.NotContains(t, engine.revokedTokens, "expired")
}
