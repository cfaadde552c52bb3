package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/verdantlabs/sprout/pkg/slogx"
)

// AccessValidator checks an access token end to end, including any
// revocation state held server-side, and resolves the owning user.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (userID string, err error)
}

// AuthnMiddleware requires a valid bearer access token and injects the
// resolved user ID into the request context.
func AuthnMiddleware(v AccessValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			userID, err := v.ValidateAccess(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("access token rejected", "err", err)
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
