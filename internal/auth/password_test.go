//go:build unit

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService(t *testing.T) {
	ps := NewPasswordService(bcrypt.MinCost)

	hash, err := ps.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, ps.Verify(hash, "secret1"))
	assert.ErrorIs(t, ps.Verify(hash, "secret2"), ErrInvalidCredentials)

	_, err = ps.Hash("12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = ps.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestNewPasswordService_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordService(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordService(bcrypt.MinCost).cost)
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(1, 2)

	assert.True(t, l.Allow("a@b.com"))
	assert.True(t, l.Allow(" A@B.com "))
	assert.False(t, l.Allow("a@b.com"))
	assert.True(t, l.Allow("other@b.com"))

	l.Sweep(0)
	assert.True(t, l.Allow("a@b.com"))
}
