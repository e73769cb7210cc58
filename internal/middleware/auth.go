package middleware

import (
	"net/http"

	"arasta-be/internal/auth"
	"arasta-be/internal/utils"
)

// AuthMiddleware parses the access token, if any, and attaches the user
// identity to the request context. Requests without a valid token pass
// through anonymously.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := auth.ExtractAccessToken(r)
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := auth.ParseJWT(tokenStr)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that carry no authenticated user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin users.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.GetUserRoleFromContext(r.Context()) != utils.RoleAdmin {
			utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
