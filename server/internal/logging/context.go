package logging

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey is private so only this package can store a logger in a context.
type ctxKey struct{}

// WithLogger returns ctx carrying logger. The request logging middleware
// stores the request-scoped logger this way so code below the handlers,
// like journal queries, logs with the request ID attached.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
