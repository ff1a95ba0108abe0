package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"storyia/internal/auth"
	"storyia/internal/models"
)

// Auth validates the signed cookie and adds user ID to context
func Auth(signer *auth.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(auth.CookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := signer.Verify(cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func isPublicEndpoint(path string) bool {
	switch path {
	case "/api/signup", "/api/login", "/healthz", "/metrics":
		return true
	}
	return !strings.HasPrefix(path, "/api/") && !strings.HasPrefix(path, "/media/") && path != "/mcp"
}

// UserGetter loads the account behind a request.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// RequireStaff rejects requests from accounts without is_staff.
func RequireStaff(users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			u, err := users.GetUser(r.Context(), userID)
			if err != nil || !u.IsStaff {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
