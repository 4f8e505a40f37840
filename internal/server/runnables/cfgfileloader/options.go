package cfgfileloader

import (
	"context"
	"log/slog"

	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for the Runner instance.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLogHandler sets a custom log handler for the Runner instance.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		r.logger = slog.New(handler).WithGroup("cfgfileloader.Runner")
	}
}

// WithContext sets the parent context. Subscriber channels close when it is done.
func WithContext(ctx context.Context) Option {
	return func(r *Runner) {
		r.parentCtx = ctx
	}
}

// WithMetrics counts config loads on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}
