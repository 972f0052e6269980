package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/conychips/auth/pkg/jwtx"
	"github.com/conychips/auth/pkg/slogx"
)

// TokenVerifier checks a token of a given kind and returns its claims.
type TokenVerifier interface {
	VerifyKind(ctx context.Context, token string, kind jwtx.Kind) (*jwtx.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Authenticate requires a valid access token. Downstream handlers find the
// claims with ClaimsFromContext.
func Authenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.VerifyKind(ctx, raw, jwtx.KindAccess)
			if err != nil {
				slogx.FromContext(ctx).Debug("bearer rejected", "error", err)
				writeBearerError(w, "invalid or expired token")
				return
			}

			ctx = contextWithAuth(ctx, raw, claims)
			ctx = slogx.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, desc)
}
