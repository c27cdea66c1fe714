package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("user-123", AccessToken, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-123", AccessToken, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-123", AccessToken, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.Error(t, err)
}

func TestGenerateShareToken(t *testing.T) {
	token, err := GenerateShareToken("abc123def456", "listener@studio.example", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, ShareToken, claims.TokenType)
	assert.Equal(t, "abc123def456", claims.ShareSlug)
	assert.Equal(t, "listener@studio.example", claims.ListenerEmail)
	assert.Empty(t, claims.UserID)
}

func TestIsTokenValidChecksType(t *testing.T) {
	access, err := GenerateToken("user-123", AccessToken, testSecret, time.Hour)
	require.NoError(t, err)

	assert.True(t, IsTokenValid(access, testSecret, AccessToken))
	assert.False(t, IsTokenValid(access, testSecret, RefreshToken))
	assert.False(t, IsTokenValid(access, testSecret, ShareToken))
	assert.False(t, IsTokenValid("not-a-token", testSecret, AccessToken))
}
