package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionID(t *testing.T) {
	id, err := GenerateSessionID(16)
	require.NoError(t, err)
	assert.Len(t, id, 32) // hex doubles the length

	other, err := GenerateSessionID(16)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestDeriveJoinTokenDeterministic(t *testing.T) {
	a := DeriveJoinToken("1:retreat:123", "salt")
	b := DeriveJoinToken("1:retreat:123", "salt")
	assert.Equal(t, a, b)
}

func TestDeriveJoinTokenVariesByInput(t *testing.T) {
	a := DeriveJoinToken("1:retreat:123", "salt")
	b := DeriveJoinToken("1:retreat:124", "salt")
	c := DeriveJoinToken("1:retreat:123", "other-salt")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveJoinTokenIsURLSafe(t *testing.T) {
	token := DeriveJoinToken("2:team:456", "salt")
	require.NotEmpty(t, token)
	for _, r := range token {
		isDigit := r >= '0' && r <= '9'
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		assert.True(t, isDigit || isLower || isUpper, "unexpected char %q", r)
	}
}
