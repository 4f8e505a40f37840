package gateway

import (
	"log/slog"

	"github.com/atlanticdynamic/scriptgate/internal/identity"
	"github.com/atlanticdynamic/scriptgate/internal/script/cache"
	"github.com/atlanticdynamic/scriptgate/internal/script/capability"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLogHandler sets the log handler.
func WithLogHandler(handler slog.Handler) Option {
	return func(s *Service) {
		if handler != nil {
			s.logger = slog.New(handler).WithGroup("gateway.Service")
		}
	}
}

// WithCache uses c instead of an empty cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRegistry uses r instead of a fresh registry.
func WithRegistry(r *capability.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithIdentity uses server instead of one rooted at the current directory.
func WithIdentity(server *identity.Server) Option {
	return func(s *Service) {
		if server != nil {
			s.identity = server
		}
	}
}

// WithMetrics records actions and registry size.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}
