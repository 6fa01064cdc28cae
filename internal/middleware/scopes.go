package middleware

import (
	"net/http"
	"strings"

	apperr "github.com/itemlabs/go-items-api/internal/errors"
)

// RequireScope gates a route on the verified token carrying the given scope,
// read from the space-separated "scope" claim or the Auth0 "permissions"
// array. An empty required scope disables the check.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if scope == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := Claims(r.Context())
			if !ok {
				apperr.Write(w, r, apperr.Unauthorized)
				return
			}
			if s, _ := claims["scope"].(string); s != "" {
				for _, have := range strings.Fields(s) {
					if have == scope {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			if perms, _ := claims["permissions"].([]any); perms != nil {
				for _, p := range perms {
					if have, _ := p.(string); have == scope {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			apperr.Write(w, r, apperr.Forbidden)
		})
	}
}

// RequireScopeOn applies RequireScope only to the listed HTTP methods.
func RequireScopeOn(scope string, methods ...string) func(http.Handler) http.Handler {
	inner := RequireScope(scope)
	return func(next http.Handler) http.Handler {
		if scope == "" {
			return next
		}
		gated := inner(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, m := range methods {
				if r.Method == m {
					gated.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
