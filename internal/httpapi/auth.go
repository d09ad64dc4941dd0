package httpapi

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// StaffAuthMiddleware gates mutating staff endpoints behind a shared bearer
// token checked against a bcrypt hash. Public read and issuance endpoints
// pass through.
func StaffAuthMiddleware(tokenHash string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		if tokenHash == "" {
			writeError(w, "", http.StatusUnauthorized, "unauthorized", "staff access is not configured")
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, "", http.StatusUnauthorized, "unauthorized", "missing staff token")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
			writeError(w, "", http.StatusUnauthorized, "unauthorized", "invalid staff token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz", r.URL.Path == "/metrics":
		return true
	case r.URL.Path == "/api/events":
		return r.Method == http.MethodGet
	case strings.HasPrefix(r.URL.Path, "/realtime"):
		return true
	case r.URL.Path == "/api/queues":
		// Creating a queue is staff-only.
		return false
	case strings.HasPrefix(r.URL.Path, "/api/queues/"):
		// Snapshots and ticket issuance are public; queue actions are not.
		return !strings.Contains(r.URL.Path, "/actions/")
	case strings.HasPrefix(r.URL.Path, "/api/tickets/"):
		// Ticket lookup is public; cancel/complete are not.
		return r.Method == http.MethodGet
	default:
		return r.Method == http.MethodOptions
	}
}
