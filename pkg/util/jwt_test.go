package util

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT(42, "coach", "test-secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, role, err := ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, "coach", role)
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT(42, "coach", "test-secret")
	require.NoError(t, err)

	_, _, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestParseJWTGarbage(t *testing.T) {
	_, _, err := ParseJWT("not.a.token", "test-secret")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(r))
}

func TestExtractTokenMissingOrMalformed(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", ExtractToken(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "abc123")
	assert.Equal(t, "", ExtractToken(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic abc123")
	assert.Equal(t, "", ExtractToken(r))
}
