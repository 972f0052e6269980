package httpx

import (
	"net/http"
	"strings"
)

// PermissionCheck decides whether granted permissions cover required.
type PermissionCheck func(granted []string, required ...string) bool

// RequirePermissions lets the request through only when the permisos claim
// of the caller satisfies check for every required permission. It must run
// after Authenticate.
func RequirePermissions(check PermissionCheck, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}
			if !check(claims.Permissions, required...) {
				writeInsufficientScope(w, required...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750 insufficient_scope response.
func writeInsufficientScope(w http.ResponseWriter, required ...string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteError(w, http.StatusForbidden, "insufficient permissions")
}
