package middleware

import (
	"context"
	stderrs "errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/itemlabs/go-items-api/internal/auth"
	apperr "github.com/itemlabs/go-items-api/internal/errors"
	"github.com/itemlabs/go-items-api/internal/metrics"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Claims returns the verified token payload placed by Auth.
func Claims(ctx context.Context) (jwt.MapClaims, bool) {
	v, ok := ctx.Value(claimsKey).(jwt.MapClaims)
	return v, ok
}

// Subject returns the sub claim of the verified token.
func Subject(ctx context.Context) (string, bool) {
	c, ok := Claims(ctx)
	if !ok {
		return "", false
	}
	s, ok := c["sub"].(string)
	return s, ok && s != ""
}

// TokenVerifier is what Auth needs from internal/auth.
type TokenVerifier interface {
	Verify(ctx context.Context, authorization string) (jwt.MapClaims, error)
}

// Auth verifies the bearer token and stores the claims in the request
// context. Fetch failures of the key set surface as 503, everything else
// as 401 with the reason as the error code.
func Auth(v TokenVerifier, mx *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				var ae *auth.AuthError
				if !stderrs.As(err, &ae) {
					apperr.Write(w, r, apperr.Unauthorized)
					return
				}
				if mx != nil {
					mx.CountAuthFailure(string(ae.Reason))
				}
				status := http.StatusUnauthorized
				msg := "unauthorized"
				if ae.Reason == auth.ReasonKeysetUnavailable && stderrs.Is(ae.Err, auth.ErrFetch) {
					status = http.StatusServiceUnavailable
					msg = "authentication keys unavailable"
				}
				apperr.Write(w, r, apperr.E(status, string(ae.Reason), msg, ae.Err, nil))
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
