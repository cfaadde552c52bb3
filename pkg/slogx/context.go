package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stashes a logger on the context, usually one already
// carrying request attributes.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by the context. It never
// returns nil; a bare context yields the process default, so call
// sites don't have to guard.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithRequestID tags the context's logger with a request ID.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("req_id", reqID))
}
