package scheduler

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/atlanticdynamic/scriptgate/internal/server/finitestate"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
	"github.com/atlanticdynamic/scriptgate/internal/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBridge struct {
	mock.Mock
}

func (m *mockBridge) Execute(ctx context.Context, t gateway.Trigger) (any, error) {
	args := m.Called(ctx, t)
	return args.Get(0), args.Error(1)
}

func (m *mockBridge) Audit(ctx context.Context, ev gateway.AuditEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// countingBridge counts executions without expectations.
type countingBridge struct {
	runs atomic.Int64
}

func (b *countingBridge) Execute(context.Context, gateway.Trigger) (any, error) {
	b.runs.Add(1)
	return nil, nil
}

func (b *countingBridge) Audit(context.Context, gateway.AuditEvent) error { return nil }

func job(name string, interval time.Duration) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Trigger: gateway.Trigger{
			JobName: name,
			InvocationContext: map[string]any{
				gateway.KeyScript: map[string]any{"file": name + ".star"},
				gateway.KeyInput:  map[string]any{"n": 1},
			},
		},
	}
}

func TestNewRunner(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(nil)
	require.Error(t, err)

	r, err := NewRunner(&countingBridge{}, WithJobs(job("a", time.Second)))
	require.NoError(t, err)
	assert.Equal(t, "scheduler.Runner", r.String())
	assert.Equal(t, finitestate.StatusNew, r.GetState())
	assert.Len(t, r.desired, 1)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	t.Run("success is audited", func(t *testing.T) {
		metrics := telemetry.NewMetrics()
		bridge := &mockBridge{}
		j := job("nightly", time.Hour)

		bridge.On("Execute", mock.Anything, j.Trigger).Return("done", nil).Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			engine.Logger(ctx, nil).Info("from script")
		})
		bridge.On("Audit", mock.Anything, mock.MatchedBy(func(ev gateway.AuditEvent) bool {
			return ev.JobName == "nightly" &&
				ev.Status == gateway.StatusSuccess &&
				ev.Script == "nightly.star" &&
				ev.RunID != "" &&
				ev.Error == "" &&
				slices.ContainsFunc(ev.Logs, func(line string) bool {
					return strings.Contains(line, "from script")
				})
		})).Return(nil)

		r, err := NewRunner(bridge, WithMetrics(metrics))
		require.NoError(t, err)
		require.NoError(t, r.RunOnce(t.Context(), j))
		bridge.AssertExpectations(t)
	})

	t.Run("failure is audited and returned", func(t *testing.T) {
		bridge := &mockBridge{}
		j := job("broken", time.Hour)
		cause := &gateway.ExecutionError{Job: "broken", Script: "resolved", Cause: errors.New("boom")}

		bridge.On("Execute", mock.Anything, j.Trigger).Return(nil, cause)
		bridge.On("Audit", mock.Anything, mock.MatchedBy(func(ev gateway.AuditEvent) bool {
			return ev.Status == gateway.StatusFailure && ev.Script == "resolved" && ev.Error == cause.Error()
		})).Return(nil)

		r, err := NewRunner(bridge)
		require.NoError(t, err)
		err = r.RunOnce(t.Context(), j)
		require.ErrorIs(t, err, gateway.ErrExecution)
		bridge.AssertExpectations(t)
	})

	t.Run("audit failure is joined", func(t *testing.T) {
		bridge := &mockBridge{}
		j := job("audited", time.Hour)
		bridge.On("Execute", mock.Anything, j.Trigger).Return(nil, nil)
		bridge.On("Audit", mock.Anything, mock.Anything).Return(gateway.ErrAudit)

		r, err := NewRunner(bridge)
		require.NoError(t, err)
		require.ErrorIs(t, r.RunOnce(t.Context(), j), gateway.ErrAudit)
	})
}

func TestRunOnce_Metrics(t *testing.T) {
	t.Parallel()

	metrics := telemetry.NewMetrics()
	r, err := NewRunner(&countingBridge{}, WithMetrics(metrics))
	require.NoError(t, err)
	require.NoError(t, r.RunOnce(t.Context(), job("counted", time.Hour)))

	count, err := promtestutil.GatherAndCount(metrics.Registry(), "scriptgate_scheduled_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunner_Lifecycle(t *testing.T) {
	t.Parallel()

	bridge := &countingBridge{}
	r, err := NewRunner(bridge, WithJobs(job("fast", 10*time.Millisecond)))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(t.Context())
	}()

	require.Eventually(t, r.IsRunning, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.JobCount())
	assert.Eventually(t, func() bool { return bridge.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	r.Stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, finitestate.StatusStopped, r.GetState())
	assert.Equal(t, 0, r.JobCount())
}

func TestRunner_SetJobs(t *testing.T) {
	t.Parallel()

	r, err := NewRunner(&countingBridge{}, WithJobs(job("a", time.Hour), job("b", time.Hour)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()
	require.Eventually(t, r.IsRunning, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, r.JobCount())

	r.mu.Lock()
	keptB := r.active["b"]
	r.mu.Unlock()

	r.SetJobs([]Job{job("b", time.Hour), job("c", time.Hour), job("d", time.Hour)})
	assert.Equal(t, 3, r.JobCount())

	r.mu.Lock()
	_, hasA := r.active["a"]
	sameB := r.active["b"] == keptB
	r.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, sameB, "unchanged job keeps running")

	// a changed interval restarts the job
	r.SetJobs([]Job{job("b", time.Minute)})
	r.mu.Lock()
	restarted := r.active["b"] != keptB
	r.mu.Unlock()
	assert.True(t, restarted)
	assert.Equal(t, 1, r.JobCount())

	cancel()
	require.NoError(t, <-errCh)
}

func TestJobsFromConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewConfigFromBytes([]byte(`
[server]
http_listen = ":0"

[[schedules]]
name = "report"
interval = "30s"
input = { limit = 5 }

[schedules.script]
name = "reporter"
file = "report.star"

[[schedules]]
name = "tick"
interval = "2m"

[schedules.script]
file = "tick.star"
`))
	require.NoError(t, err)

	jobs := JobsFromConfig(cfg)
	require.Len(t, jobs, 2)
	assert.Equal(t, "report", jobs[0].Name)
	assert.Equal(t, 30*time.Second, jobs[0].Interval)
	assert.Equal(t, "reporter", jobs[0].ScriptName())
	assert.Equal(t, 2*time.Minute, jobs[1].Interval)
	assert.Equal(t, "tick.star", jobs[1].ScriptName())

	unset := JobsFromConfig(&config.Config{Schedules: []config.Schedule{{Name: "unset"}}})
	assert.Equal(t, DefaultInterval, unset[0].Interval)
	assert.Empty(t, unset[0].ScriptName())

	assert.Nil(t, JobsFromConfig(nil))
}

type failingBridge struct{}

func (failingBridge) Execute(context.Context, gateway.Trigger) (any, error) {
	return nil, errors.New("engine offline")
}

func (failingBridge) Audit(context.Context, gateway.AuditEvent) error { return nil }

func TestRunner_LogsFailedRuns(t *testing.T) {
	t.Parallel()

	var logs testutil.LogBuffer
	r, err := NewRunner(failingBridge{}, WithLogHandler(logs.Handler()), WithJobs(job("flaky", 10*time.Millisecond)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Scheduled job failed")
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	failed := slices.ContainsFunc(logs.Lines(), func(line string) bool {
		return strings.Contains(line, "Scheduled job failed") &&
			strings.Contains(line, "job=flaky") &&
			strings.Contains(line, "engine offline")
	})
	assert.True(t, failed, "logs:\n%s", logs.String())
}
