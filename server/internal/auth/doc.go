// Package auth provides authentication middleware for hrvstack-server.
//
// APIKeyMiddleware(mode, header, key, next) wraps an http.Handler and
// validates the API key from the named HTTP header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware responds 401 Unauthorized immediately.
package auth
