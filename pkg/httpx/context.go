package httpx

import (
	"context"

	"github.com/conychips/auth/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
	CtxKeyBearer ctxKey = "bearer"
)

// ClaimsFromContext returns the verified access token claims put there by
// Authenticate.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok && c != nil
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeyUserID).(string)
	return id
}

// BearerFromContext returns the raw access token of the request.
func BearerFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(CtxKeyBearer).(string)
	return tok
}

func contextWithAuth(ctx context.Context, raw string, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.UserID)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	ctx = context.WithValue(ctx, CtxKeyBearer, raw)
	return ctx
}
