package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyMiddleware wraps next with API key authentication.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed (pass-through).
//   - Otherwise the middleware reads the value of header from the request and
//     compares it to key in constant time.
//   - A missing, empty, or incorrect key returns 401 Unauthorized.
func APIKeyMiddleware(mode, header, key string, next http.Handler) http.Handler {
	// Non-apikey modes or unconfigured key → allow everything.
	if mode != "apikey" || key == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(header)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
