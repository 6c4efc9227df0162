package chi

import (
	"net/http"
	"strings"
)

// BearerAuthMiddleware returns a middleware that validates the admin Bearer
// token. Fail closed: with no token configured every guarded request is
// rejected, the write path never silently opens up.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "admin endpoints are disabled")
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized,
					"authorization header must use Bearer scheme")
				return
			}

			if auth[len(bearerPrefix):] != token {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
