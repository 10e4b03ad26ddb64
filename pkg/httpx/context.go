package httpx

import (
	"context"

	"github.com/mona-chen/jean/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyScopes ctxKey = "scopes"
	CtxKeyClaims ctxKey = "claims"
	CtxKeyToken  ctxKey = "token"
)

// ClaimsFromContext returns the TEP claims AuthnMiddleware verified.
func ClaimsFromContext(ctx context.Context) (*jwtx.TEPClaims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.TEPClaims)
	return c, ok
}

// UserIDFromContext returns the verified subject or "".
func UserIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyUserID).(string)
	return s
}

// TokenFromContext returns the raw bearer token as presented.
func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyToken).(string)
	return s
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
