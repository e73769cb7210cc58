package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"arasta-be/internal/auth"
	"arasta-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("ValidToken", func(t *testing.T) {
		token, err := auth.GenerateJWT(5, "user")
		require.NoError(t, err)

		var seenID uint
		handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID, _ = utils.GetUserIDFromContext(r.Context())
		}))

		req := httptest.NewRequest("GET", "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, uint(5), seenID)
	})

	t.Run("NoTokenPassesThroughAnonymously", func(t *testing.T) {
		handler := AuthMiddleware(next)
		req := httptest.NewRequest("GET", "/orders", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GarbageTokenPassesThroughAnonymously", func(t *testing.T) {
		handler := AuthMiddleware(next)
		req := httptest.NewRequest("GET", "/orders", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(next)

	t.Run("Anonymous", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/orders", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Authenticated", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/orders", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 1, utils.RoleUser))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAdmin(next)

	t.Run("User", func(t *testing.T) {
		req := httptest.NewRequest("PATCH", "/orders/1/tracking", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 1, utils.RoleUser))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Admin", func(t *testing.T) {
		req := httptest.NewRequest("PATCH", "/orders/1/tracking", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 1, utils.RoleAdmin))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestResolveRateTier(t *testing.T) {
	t.Run("PaymentCallbackIsStrict", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/payment/verify?Authority=A&Status=OK", nil)
		limit, burst, tier := resolveRateTier(req)
		assert.Equal(t, limitStrict, limit)
		assert.Equal(t, burstStrict, burst)
		assert.Equal(t, "strict", tier)
	})

	t.Run("DefaultIsGeneral", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders", nil)
		_, _, tier := resolveRateTier(req)
		assert.Equal(t, "general", tier)
	})
}

func TestRateLimitMiddleware_Blocks(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(next)

	var lastCode int
	for i := 0; i < burstStrict+3; i++ {
		req := httptest.NewRequest("GET", "/orders/payment/verify?Authority=A&Status=OK", nil)
		req.RemoteAddr = "10.9.8.7:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		lastCode = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}
