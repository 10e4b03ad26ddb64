package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/slogx"
)

// AuthnMiddleware requires a "Bearer tep.<jwt>" header that v accepts and
// stores the claims in the request context.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing_token", "TEP token required")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			if raw == "" {
				writeBearerError(w, "missing_token", "TEP token required")
				return
			}

			claims, err := v.Decode(raw)
			if err != nil {
				log.Warn("tep token rejected", "err", err)
				writeBearerError(w, "invalid_token", describeDecodeError(err))
				return
			}

			ctx = slogx.With(ctx, "sub", claims.Subject, "miniapp_id", claims.MiniAppID())
			ctx = contextWithAuth(ctx, raw, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, raw string, c *jwtx.TEPClaims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes())
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	ctx = context.WithValue(ctx, CtxKeyToken, raw)
	return ctx
}

func describeDecodeError(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return "token expired"
	case errors.Is(err, jwtx.ErrNotYetValid):
		return "token not yet valid"
	case errors.Is(err, jwtx.ErrAlgorithm):
		return "unsupported signing algorithm"
	case errors.Is(err, jwtx.ErrUnknownKID), errors.Is(err, jwtx.ErrInvalidSig):
		return "token signature invalid"
	case errors.Is(err, jwtx.ErrIssuer), errors.Is(err, jwtx.ErrAudience), errors.Is(err, jwtx.ErrTokenType):
		return "token not issued for this service"
	default:
		return "malformed token"
	}
}

// RFC 6750-compliant error response for bearer auth, with a JSON body.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
