// Package httpapi serves the script action endpoint, prometheus metrics and
// the MCP tools over HTTP on a go-supervisor httpserver runnable.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robbyt/go-supervisor/runnables/httpserver"
	"github.com/robbyt/go-supervisor/supervisor"
)

var (
	_ supervisor.Runnable  = (*Runner)(nil)
	_ supervisor.Stateable = (*Runner)(nil)
)

// ErrNoAddress is returned when the listen address is empty.
var ErrNoAddress = errors.New("http listen address is empty")

// Config is the static HTTP server configuration. Changing it requires a
// restart.
type Config struct {
	Address      string
	Headers      map[string]string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DrainTimeout time.Duration
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// MCP serves /mcp when set.
	MCP http.Handler
}

type serverImplementation interface {
	Run(ctx context.Context) error
	Stop()
	GetState() string
	IsRunning() bool
	GetStateChan(ctx context.Context) <-chan string
}

// Runner wraps the go-supervisor httpserver.Runner.
type Runner struct {
	address string
	routes  []httpserver.Route
	cfg     Config
	server  serverImplementation
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogHandler sets the log handler.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler)
		}
	}
}

// NewRunner creates the HTTP runnable for d.
func NewRunner(d Dispatcher, cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Address == "" {
		return nil, ErrNoAddress
	}
	r := &Runner{address: cfg.Address, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	routes, err := Routes(d, cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.routes = routes
	r.logger = r.logger.WithGroup("httpapi.Runner").With("address", cfg.Address)

	runner, err := httpserver.NewRunner(httpserver.WithConfigCallback(r.configCallback))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server runner: %w", err)
	}
	r.server = runner
	return r, nil
}

func (r *Runner) configCallback() (*httpserver.Config, error) {
	var options []httpserver.ConfigOption
	if r.cfg.ReadTimeout > 0 {
		options = append(options, httpserver.WithReadTimeout(r.cfg.ReadTimeout))
	}
	if r.cfg.WriteTimeout > 0 {
		options = append(options, httpserver.WithWriteTimeout(r.cfg.WriteTimeout))
	}
	if r.cfg.DrainTimeout > 0 {
		options = append(options, httpserver.WithDrainTimeout(r.cfg.DrainTimeout))
	}

	config, err := httpserver.NewConfig(r.address, r.routes, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server config: %w", err)
	}
	return config, nil
}

func (r *Runner) String() string {
	return fmt.Sprintf("httpapi.Runner[%s]", r.address)
}

// Run serves until ctx is done or Stop is called.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting HTTP server", "routes", len(r.routes))
	return r.server.Run(ctx)
}

func (r *Runner) Stop() {
	r.logger.Info("Stopping HTTP server")
	r.server.Stop()
}

func (r *Runner) GetState() string {
	return r.server.GetState()
}

func (r *Runner) IsRunning() bool {
	return r.server.IsRunning()
}

func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.server.GetStateChan(ctx)
}
