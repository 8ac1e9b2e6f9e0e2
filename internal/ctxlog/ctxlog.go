// Package ctxlog carries a *slog.Logger through context.Context so that
// every unit task logs with the run-scoped attributes (run id, unit name)
// attached by its caller.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type so no other package can collide with our entry.
type key struct{}

var loggerKey = key{}

// WithLogger returns a child context that carries the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx. Code paths that run before
// the App has configured logging (or tests that never attach one) get the
// process default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
