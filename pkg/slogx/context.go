package slogx

import (
	"context"
	"log/slog"
)

type (
	loggerKey    struct{}
	requestIDKey struct{}
)

// RequestIDHeader carries the request id in and out of the broker, and on
// to the delegation service and the ledger.
const RequestIDHeader = "X-Request-ID"

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or the default logger outside a
// request.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// With adds attributes to the context's logger.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// RequestID returns the id HTTPMiddleware assigned, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
