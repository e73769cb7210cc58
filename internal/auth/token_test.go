package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateJWT(7, "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestParseJWT_Invalid(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	_, err := ParseJWT("not-a-token")
	assert.Error(t, err)
}

func TestParseJWT_WrongSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "first-secret")
	token, err := GenerateJWT(7, "user")
	require.NoError(t, err)

	t.Setenv("SECRET_KEY", "other-secret")
	_, err = ParseJWT(token)
	assert.Error(t, err)
}

func TestGenerateJWT_MissingSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	_, err := GenerateJWT(7, "user")
	assert.Error(t, err)
}

func TestExtractAccessToken(t *testing.T) {
	t.Run("Cookie", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})
		assert.Equal(t, "cookie-token", ExtractAccessToken(r))
	})

	t.Run("BearerHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "header-token", ExtractAccessToken(r))
	})

	t.Run("CookieWinsOverHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})
		r.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "cookie-token", ExtractAccessToken(r))
	})

	t.Run("Missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		assert.Equal(t, "", ExtractAccessToken(r))
	})
}
