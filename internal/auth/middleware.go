package auth

import (
	"context"
	"net/http"

	"github.com/hpyer/easysms/internal/httputil"
)

type ctxKey struct{}

// RequireAuth returns middleware that rejects requests without a valid
// bearer token.
func RequireAuth(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httputil.ExtractBearerToken(r)
			if !ok {
				httputil.WriteErrorWithDocURL(w, http.StatusUnauthorized,
					"missing or invalid authorization header",
					httputil.DocURL("#authentication"))
				return
			}
			claims, err := svc.ValidateToken(token)
			if err != nil {
				httputil.WriteErrorWithDocURL(w, http.StatusUnauthorized,
					"invalid or expired token",
					httputil.DocURL("#authentication"))
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves auth claims from the request context.
// Returns nil if no claims are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ctxKey{}).(*Claims)
	return claims
}
