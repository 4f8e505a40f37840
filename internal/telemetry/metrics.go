// Package telemetry exposes the gateway's prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scriptgate"

// Metrics holds the gateway collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	compiles       *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	scheduledRuns  *prometheus.CounterVec
	capabilities   prometheus.Gauge
	configLoads    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_compiles_total",
				Help:      "Script compilations by type and result",
			},
			[]string{"type", "result"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_cache_hits_total",
				Help:      "Compiled script cache hits by type",
			},
			[]string{"type"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_actions_total",
				Help:      "Dispatched script actions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "script_action_duration_seconds",
				Help:      "Duration of dispatched script actions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		scheduledRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_runs_total",
				Help:      "Scheduled script runs by job and status",
			},
			[]string{"job", "status"},
		),
		capabilities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "capabilities_registered",
				Help:      "Current number of registered capabilities",
			},
		),
		configLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_loads_total",
				Help:      "Config file loads by result (applied, unchanged, invalid)",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.compiles,
		m.cacheHits,
		m.actions,
		m.actionDuration,
		m.scheduledRuns,
		m.capabilities,
		m.configLoads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Compiled implements cache.Observer.
func (m *Metrics) Compiled(scriptType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.compiles.WithLabelValues(scriptType, result).Inc()
}

// Hit implements cache.Observer.
func (m *Metrics) Hit(scriptType string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(scriptType).Inc()
}

// RecordAction counts a dispatched action and its outcome.
func (m *Metrics) RecordAction(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
	m.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordScheduledRun counts a scheduled run.
func (m *Metrics) RecordScheduledRun(job, status string) {
	if m == nil {
		return
	}
	m.scheduledRuns.WithLabelValues(job, status).Inc()
}

// SetCapabilities reports the registry size.
func (m *Metrics) SetCapabilities(n int) {
	if m == nil {
		return
	}
	m.capabilities.Set(float64(n))
}

// RecordConfigLoad counts a config file load by result.
func (m *Metrics) RecordConfigLoad(result string) {
	if m == nil {
		return
	}
	m.configLoads.WithLabelValues(result).Inc()
}

// Registry returns the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
