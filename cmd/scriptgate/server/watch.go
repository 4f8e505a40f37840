package server

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/scheduler"
)

// jobSetter is the part of the scheduler the watcher drives.
type jobSetter interface {
	SetJobs(jobs []scheduler.Job)
}

// watcher applies configs from the file loader to the running gateway and
// scheduler. It follows the channel until it is closed or ctx is done.
type watcher struct {
	logger  *slog.Logger
	applied *config.Config
	svc     *gateway.Service
	sched   jobSetter
}

func (w *watcher) watch(ctx context.Context, configs <-chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-configs:
			if !ok {
				w.logger.Debug("Config channel closed")
				return
			}
			w.apply(ctx, cfg)
		}
	}
}

// apply reloads the gateway settings, crypto keys and schedules from cfg.
// Gateway errors are logged; the parts that did apply stay in effect.
func (w *watcher) apply(ctx context.Context, cfg *config.Config) {
	if cfg == nil || w.applied.Equals(cfg) {
		return
	}

	for _, section := range restartSections(w.applied, cfg) {
		w.logger.Warn("Config section changed, restart required to apply it", "section", section)
	}

	if err := bindCrypto(w.svc, cfg); err != nil {
		w.logger.Error("Failed to rebind crypto, keeping previous keys", "error", err)
	}
	if err := w.svc.Reload(ctx, cfg.GatewaySettings()); err != nil {
		w.logger.Error("Gateway reload finished with errors", "error", err)
	}
	w.sched.SetJobs(scheduler.JobsFromConfig(cfg))

	w.applied = cfg
	w.logger.Info("Applied new config",
		"properties", len(cfg.Properties),
		"functions", len(cfg.Functions),
		"schedules", len(cfg.Schedules),
	)
}

// restartSections names the sections of next that differ from prev but are
// only read at startup.
func restartSections(prev, next *config.Config) []string {
	var out []string
	if !reflect.DeepEqual(prev.Server, next.Server) {
		out = append(out, "server")
	}
	if prev.Logging != next.Logging {
		out = append(out, "logging")
	}
	if prev.Resources != next.Resources {
		out = append(out, "resources")
	}
	if !reflect.DeepEqual(prev.Engines, next.Engines) {
		out = append(out, "engines")
	}
	return out
}
