package httpapi

import (
	"crypto/subtle"
	"net/http"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
)

// RequireAdminToken rejects requests whose admin token header does not match token.
func RequireAdminToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(AdminTokenHeader)
		if got == "" || token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "unauthenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
