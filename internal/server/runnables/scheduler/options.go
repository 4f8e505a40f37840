package scheduler

import (
	"log/slog"

	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogHandler sets the log handler. Run logs are collected on top of it.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler).WithGroup("scheduler.Runner")
		}
	}
}

// WithMetrics counts runs per job and status.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithJobs sets the initial job set.
func WithJobs(jobs ...Job) Option {
	return func(r *Runner) {
		r.desired = indexJobs(jobs)
	}
}
