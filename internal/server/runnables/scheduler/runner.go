// Package scheduler fires configured scripts on fixed intervals through the
// gateway's scheduled invocation bridge and audits every run.
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/atlanticdynamic/scriptgate/internal/server/finitestate"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-loglater"
	"github.com/robbyt/go-supervisor/supervisor"
)

var _ supervisor.Runnable = (*Runner)(nil)

// Bridge executes and audits scheduled triggers. *gateway.Service implements it.
type Bridge interface {
	Execute(ctx context.Context, t gateway.Trigger) (any, error)
	Audit(ctx context.Context, ev gateway.AuditEvent) error
}

type running struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner ticks every job on its own goroutine while running.
type Runner struct {
	bridge  Bridge
	logger  *slog.Logger
	metrics *telemetry.Metrics
	fsm     finitestate.Machine

	mu        sync.Mutex
	runCtx    context.Context
	runCancel context.CancelFunc
	desired   map[string]Job
	active    map[string]*running
}

// NewRunner creates a Runner firing triggers through bridge.
func NewRunner(bridge Bridge, opts ...Option) (*Runner, error) {
	if bridge == nil {
		return nil, errors.New("scheduler bridge is nil")
	}
	r := &Runner{
		bridge:  bridge,
		logger:  slog.Default().WithGroup("scheduler.Runner"),
		desired: map[string]Job{},
		active:  map[string]*running{},
	}
	for _, opt := range opts {
		opt(r)
	}

	fsm, err := finitestate.New(r.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	r.fsm = fsm
	return r, nil
}

func (r *Runner) String() string {
	return "scheduler.Runner"
}

// Run starts the current job set and blocks until ctx is done or Stop is called.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.fsm.Transition(finitestate.StatusBooting); err != nil {
		return fmt.Errorf("failed to transition to booting state: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.runCtx, r.runCancel = runCtx, cancel
	r.reconcileLocked()
	r.mu.Unlock()

	if err := r.fsm.Transition(finitestate.StatusRunning); err != nil {
		return fmt.Errorf("failed to transition to running state: %w", err)
	}
	r.logger.Info("Scheduler started", "jobs", r.JobCount())

	<-runCtx.Done()
	if r.fsm.GetState() != finitestate.StatusStopping {
		if err := r.fsm.Transition(finitestate.StatusStopping); err != nil {
			r.logger.Debug("Failed to transition to stopping state", "error", err)
		}
	}

	r.mu.Lock()
	r.runCtx, r.runCancel = nil, nil
	stopping := make([]*running, 0, len(r.active))
	for name, job := range r.active {
		job.cancel()
		stopping = append(stopping, job)
		delete(r.active, name)
	}
	r.mu.Unlock()
	for _, job := range stopping {
		<-job.done
	}

	finitestate.Stop(r.fsm, r.logger)
	r.logger.Info("Scheduler stopped")
	return nil
}

// Stop cancels every job and makes Run return.
func (r *Runner) Stop() {
	if err := r.fsm.Transition(finitestate.StatusStopping); err != nil {
		r.logger.Debug("Failed to transition to stopping state", "error", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runCancel != nil {
		r.runCancel()
	}
}

// SetJobs replaces the job set. While running, removed or changed jobs are
// stopped and new or changed ones started.
func (r *Runner) SetJobs(jobs []Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.desired = indexJobs(jobs)
	if r.runCtx != nil {
		r.reconcileLocked()
	}
}

// JobCount returns the number of running jobs.
func (r *Runner) JobCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Runner) reconcileLocked() {
	for name, job := range r.active {
		want, ok := r.desired[name]
		if ok && want.equal(job.job) {
			continue
		}
		job.cancel()
		delete(r.active, name)
		r.logger.Debug("Stopped job", "job", name)
	}

	for name, job := range r.desired {
		if _, ok := r.active[name]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(r.runCtx)
		rj := &running{job: job, cancel: cancel, done: make(chan struct{})}
		r.active[name] = rj
		go r.loop(ctx, rj)
		r.logger.Debug("Started job", "job", name, "interval", job.Interval)
	}
}

func (r *Runner) loop(ctx context.Context, rj *running) {
	defer close(rj.done)
	ticker := time.NewTicker(rj.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx, rj.job); err != nil {
				r.logger.Warn("Scheduled job failed", "job", rj.job.Name, "error", err)
			}
		}
	}
}

// RunOnce executes job once, audits the outcome and returns the execution
// and audit errors joined.
func (r *Runner) RunOnce(ctx context.Context, job Job) error {
	runID := uuid.Must(uuid.NewV6()).String()
	collector := loglater.NewLogCollector(r.logger.Handler())
	logger := slog.New(collector).With("job", job.Name, "runId", runID)

	start := time.Now()
	_, err := r.bridge.Execute(engine.WithLogger(ctx, logger), job.Trigger)
	ev := gateway.AuditEvent{
		JobName:  job.Name,
		RunID:    runID,
		Script:   job.ScriptName(),
		Status:   gateway.StatusSuccess,
		Duration: time.Since(start),
	}

	if err != nil {
		ev.Status = gateway.StatusFailure
		ev.Error = err.Error()
		var execErr *gateway.ExecutionError
		if errors.As(err, &execErr) && execErr.Script != "" {
			ev.Script = execErr.Script
		}
		logger.Error("Scheduled run failed", "error", err)
	} else {
		logger.Info("Scheduled run completed", "duration", ev.Duration)
	}
	ev.Logs = collectedLines(collector)
	r.metrics.RecordScheduledRun(job.Name, ev.Status)

	if auditErr := r.bridge.Audit(ctx, ev); auditErr != nil {
		return errors.Join(err, auditErr)
	}
	return err
}

// collectedLines replays the run's records as text lines without timestamps.
func collectedLines(collector *loglater.LogCollector) []string {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	if err := collector.PlayLogs(handler); err != nil || buf.Len() == 0 {
		return nil
	}
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func indexJobs(jobs []Job) map[string]Job {
	out := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		out[j.Name] = j
	}
	return out
}
