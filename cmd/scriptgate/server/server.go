package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/atlanticdynamic/scriptgate/internal/config/logs"
	"github.com/atlanticdynamic/scriptgate/internal/crypto"
	"github.com/atlanticdynamic/scriptgate/internal/logging"
	"github.com/atlanticdynamic/scriptgate/internal/resource/sqlite"
	"github.com/atlanticdynamic/scriptgate/internal/script/cache"
	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/atlanticdynamic/scriptgate/internal/server/mcpapi"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/cfgfileloader"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/grpcapi"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/httpapi"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/scheduler"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
	"github.com/robbyt/go-supervisor/supervisor"
)

// ErrNoConfigPath is returned when Run is called without a config file.
var ErrNoConfigPath = errors.New("a config file path is required")

// Run starts the scriptgate server from the config file at configPath and
// blocks until ctx is canceled or a runnable fails. The HTTP and gRPC
// listeners, engines and the resource store are fixed at startup; properties,
// identity, sources, functions, crypto keys and schedules follow the file on
// reload (SIGHUP).
func Run(
	ctx context.Context,
	logger *slog.Logger,
	configPath string,
	version string,
) error {
	if configPath == "" {
		return ErrNoConfigPath
	}

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logHandler, err := configuredHandler(cfg.Logging, logger.Handler())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger = slog.New(logHandler)

	metrics := telemetry.NewMetrics()
	svc, closeStore, err := newGateway(ctx, cfg, logHandler, metrics)
	if err != nil {
		return err
	}
	defer closeStore()
	defer svc.Close()

	cfgFileLoader, err := cfgfileloader.NewRunner(
		configPath,
		cfgfileloader.WithContext(ctx),
		cfgfileloader.WithLogHandler(logHandler),
		cfgfileloader.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create config file loader: %w", err)
	}

	sched, err := scheduler.NewRunner(
		svc,
		scheduler.WithLogHandler(logHandler),
		scheduler.WithMetrics(metrics),
		scheduler.WithJobs(scheduler.JobsFromConfig(cfg)...),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	// order is important: config first, listeners last
	runnables := []supervisor.Runnable{cfgFileLoader, sched}

	if cfg.Server.GRPCListen != "" {
		grpcRunner, err := grpcapi.New(
			svc,
			grpcapi.WithListenAddr(cfg.Server.GRPCListen),
			grpcapi.WithLogHandler(logHandler),
		)
		if err != nil {
			return fmt.Errorf("failed to create gRPC runner: %w", err)
		}
		runnables = append(runnables, grpcRunner)
	}

	if cfg.Server.HTTPListen != "" {
		httpRunner, err := httpapi.NewRunner(
			svc,
			httpConfig(cfg, svc, metrics, logHandler, version),
			httpapi.WithLogHandler(logHandler),
		)
		if err != nil {
			return fmt.Errorf("failed to create HTTP runner: %w", err)
		}
		runnables = append(runnables, httpRunner)
	}

	w := &watcher{
		logger:  logger.WithGroup("config.watcher"),
		applied: cfg,
		svc:     svc,
		sched:   sched,
	}
	go w.watch(ctx, cfgFileLoader.GetConfigChan())

	super, err := supervisor.New(
		supervisor.WithContext(ctx),
		supervisor.WithLogHandler(logHandler),
		supervisor.WithRunnables(runnables...),
	)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}
	if err := super.Run(); err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	logger.Info("Server shutdown complete")
	return nil
}

// configuredHandler builds the handler described by cfg, or returns fallback
// when the logging section is empty.
func configuredHandler(cfg logs.Config, fallback slog.Handler) (slog.Handler, error) {
	if cfg == (logs.Config{}) {
		return fallback, nil
	}
	return logging.NewHandler(cfg.Format.String(), cfg.Level.String(), cfg.Output)
}

// newGateway builds the gateway for cfg: engines, metrics, the optional
// resource store, crypto and the initial settings. The returned func closes
// the store.
func newGateway(
	ctx context.Context,
	cfg *config.Config,
	logHandler slog.Handler,
	metrics *telemetry.Metrics,
) (*gateway.Service, func(), error) {
	var engines []engine.Engine
	if cfg.Engines.StarlarkEnabled() {
		engines = append(engines, engine.NewStarlark(logHandler))
	}
	if cfg.Engines.RisorEnabled() {
		engines = append(engines, engine.NewRisor(logHandler))
	}

	scriptCache := cache.New(
		cache.WithLogHandler(logHandler),
		cache.WithObserver(metrics),
		cache.WithEngines(engines...),
	)
	svc := gateway.New(
		gateway.WithLogHandler(logHandler),
		gateway.WithMetrics(metrics),
		gateway.WithCache(scriptCache),
	)

	closeStore := func() {}
	if path := cfg.Resources.SQLitePath; path != "" {
		store, err := sqlite.Open(ctx, sqlite.Config{Path: path}, logHandler)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open resource store: %w", err)
		}
		svc.BindResources(store)
		closeStore = func() {
			if err := store.Close(); err != nil {
				slog.New(logHandler).Error("Failed to close resource store", "error", err)
			}
		}
	}

	if err := bindCrypto(svc, cfg); err != nil {
		closeStore()
		return nil, nil, err
	}

	if err := svc.Reload(ctx, cfg.GatewaySettings()); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to apply gateway settings: %w", err)
	}
	return svc, closeStore, nil
}

func bindCrypto(svc *gateway.Service, cfg *config.Config) error {
	cryptoCfg, err := cfg.CryptoConfig()
	if err != nil {
		return fmt.Errorf("invalid crypto config: %w", err)
	}
	cryptoSvc, err := crypto.NewService(cryptoCfg)
	if err != nil {
		return fmt.Errorf("failed to create crypto service: %w", err)
	}
	svc.BindCrypto(cryptoSvc)
	return nil
}

func httpConfig(
	cfg *config.Config,
	svc *gateway.Service,
	metrics *telemetry.Metrics,
	logHandler slog.Handler,
	version string,
) httpapi.Config {
	out := httpapi.Config{
		Address:      cfg.Server.HTTPListen,
		Headers:      cfg.Server.Headers,
		ReadTimeout:  cfg.Server.ReadTimeout.AsDuration(),
		WriteTimeout: cfg.Server.WriteTimeout.AsDuration(),
		DrainTimeout: cfg.Server.DrainTimeout.AsDuration(),
		Metrics:      metrics.Handler(),
	}
	if cfg.Server.MCP {
		out.MCP = mcpapi.NewHandler(svc, mcpapi.WithLogHandler(logHandler), mcpapi.WithVersion(version))
	}
	return out
}
