package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/webhookd/webhookd/internal/auth/token"
)

// AdminGuard ensures requests to the management API carry a valid bearer
// token issued by the admin token manager. The ingest endpoint never wraps
// this guard - it authenticates via per-subscription HMAC signatures
// instead.
func AdminGuard(manager *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				writeUnauthorized(w, "admin auth unavailable")
				return
			}
			bearer := extractBearer(r.Header.Get("Authorization"))
			if bearer == "" {
				writeUnauthorized(w, "missing authorization header")
				return
			}
			if _, err := manager.Parse(bearer); err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return trimmed
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
