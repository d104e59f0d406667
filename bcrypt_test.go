package auth_test

import (
	"strings"
	"testing"

	auth "github.com/avelhart/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NotContains(t, hash, "password123")

	other, err := auth.HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "bcrypt salts every hash")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.Equal(t, auth.ErrNoEmptyString, err)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	assert.NoError(t, auth.ComparePasswordAndHash("password123", hash))
	assert.Equal(t, auth.ErrMismatchedHashAndPassword, auth.ComparePasswordAndHash("wrong-password", hash))
}

func TestRandomPasswordHash(t *testing.T) {
	hash := auth.RandomPasswordHash()
	assert.NotEmpty(t, hash)
	assert.Error(t, auth.ComparePasswordAndHash("password123", hash))
}
