// Package cfgfileloader loads the gateway configuration from a TOML file and
// broadcasts every changed, valid version to its subscribers.
package cfgfileloader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/atlanticdynamic/scriptgate/internal/server/finitestate"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
	"github.com/robbyt/go-supervisor/supervisor"
)

var (
	_ supervisor.Runnable   = (*Runner)(nil)
	_ supervisor.Reloadable = (*Runner)(nil)
)

// Runner loads the config file on boot and on every supervisor reload.
type Runner struct {
	filePath  string
	lastValid atomic.Pointer[config.Config]

	logger  *slog.Logger
	metrics *telemetry.Metrics
	fsm     finitestate.Machine

	runCtx    context.Context
	runCancel context.CancelFunc
	parentCtx context.Context

	subscribers       sync.Map
	subscriberCounter atomic.Uint64
}

// NewRunner creates a Runner for the config file at filePath.
func NewRunner(filePath string, opts ...Option) (*Runner, error) {
	runner := &Runner{
		filePath:  filePath,
		logger:    slog.Default().WithGroup("cfgfileloader.Runner"),
		parentCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(runner)
	}

	fsm, err := finitestate.New(runner.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	runner.fsm = fsm
	runner.runCtx, runner.runCancel = context.WithCancel(runner.parentCtx)

	return runner, nil
}

func (r *Runner) String() string {
	return "cfgfileloader.Runner"
}

// Run loads the initial config and blocks until ctx or the runner is stopped.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Debug("Starting Runner")

	if err := r.fsm.Transition(finitestate.StatusBooting); err != nil {
		return fmt.Errorf("failed to transition to booting state: %w", err)
	}

	r.runCtx, r.runCancel = context.WithCancel(ctx)

	if err := r.boot(); err != nil {
		if stateErr := r.fsm.Transition(finitestate.StatusError); stateErr != nil {
			r.logger.Error("Failed to transition to error state", "error", stateErr)
		}
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	if err := r.fsm.Transition(finitestate.StatusRunning); err != nil {
		return fmt.Errorf("failed to transition to running state: %w", err)
	}

	select {
	case <-r.parentCtx.Done():
		r.logger.Debug("Parent context canceled")
	case <-r.runCtx.Done():
		r.logger.Debug("Run context canceled")
	}

	r.logger.Info("Runner shutting down")
	finitestate.Stop(r.fsm, r.logger)
	r.lastValid.Store(nil)

	return nil
}

// Load results reported to metrics.
const (
	loadApplied   = "applied"
	loadUnchanged = "unchanged"
	loadInvalid   = "invalid"
)

func (r *Runner) boot() error {
	if r.filePath == "" {
		r.logger.Warn("No config path set, skipping boot")
		return nil
	}
	_, err := r.load()
	return err
}

// Stop cancels Run.
func (r *Runner) Stop() {
	r.logger.Debug("Stopping Runner")
	if err := r.fsm.Transition(finitestate.StatusStopping); err != nil {
		r.logger.Debug("Failed to transition to stopping state", "error", err)
	}
	r.runCancel()
}

// Reload re-reads the file. An invalid file is logged and the last valid
// config stays in effect; an unchanged file is not broadcast.
func (r *Runner) Reload() {
	if r.filePath == "" {
		r.logger.Warn("No config path set, skipping reload")
		return
	}

	result, err := r.load()
	switch result {
	case loadInvalid:
		r.logger.Error("Failed to reload config, keeping the last valid one", "path", r.filePath, "error", err)
	case loadUnchanged:
		r.logger.Debug("Config unchanged, skipping broadcast")
	default:
		r.logger.Info("Config reloaded", "path", r.filePath)
	}
}

// load parses the file and broadcasts it when it differs from the last valid
// config.
func (r *Runner) load() (string, error) {
	cfg, err := config.NewConfig(r.filePath)
	if err != nil {
		r.metrics.RecordConfigLoad(loadInvalid)
		return loadInvalid, err
	}

	if r.lastValid.Load().Equals(cfg) {
		r.metrics.RecordConfigLoad(loadUnchanged)
		return loadUnchanged, nil
	}

	r.lastValid.Store(cfg)
	r.broadcast(cfg)
	r.metrics.RecordConfigLoad(loadApplied)
	r.logger.Debug("Config loaded",
		"version", cfg.Version,
		"functions", len(cfg.Functions),
		"schedules", len(cfg.Schedules),
		"sources", len(cfg.Sources),
	)
	return loadApplied, nil
}

// GetConfigChan subscribes to config changes. The current config, if any, is
// delivered first. The channel is closed when the parent context is done.
func (r *Runner) GetConfigChan() <-chan *config.Config {
	ch := make(chan *config.Config, 1)

	if current := r.lastValid.Load(); current != nil {
		ch <- current
	}

	id := r.subscriberCounter.Add(1)
	r.subscribers.Store(id, ch)

	go func() {
		<-r.parentCtx.Done()
		r.subscribers.Delete(id)
		close(ch)
	}()

	return ch
}

// getConfig returns the last valid config, or nil.
func (r *Runner) getConfig() *config.Config {
	return r.lastValid.Load()
}

func (r *Runner) broadcast(cfg *config.Config) {
	r.subscribers.Range(func(key, value any) bool {
		ch, ok := value.(chan *config.Config)
		if !ok {
			r.logger.Error("Invalid subscriber channel type", "key", key)
			r.subscribers.Delete(key)
			return true
		}

		select {
		case ch <- cfg:
			r.logger.Debug("Config sent to subscriber", "subscriber_id", key)
		default:
			r.logger.Warn("Subscriber channel full, skipping", "subscriber_id", key)
		}
		return true
	})
}
