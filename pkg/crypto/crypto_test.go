package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("client-preview-2025", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "client-preview-2025", hash)

	assert.True(t, CheckPassword("client-preview-2025", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("client-preview-2025", "not-a-hash"))
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("pw", 999)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
