package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/resource"
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
)

var (
	// ErrExecution matches every failed scheduled execution.
	ErrExecution = errors.New("scheduled script execution failed")
	// ErrJobConfig is a scheduled job without a usable script descriptor.
	ErrJobConfig = errors.New("scheduled job is misconfigured")
	// ErrAudit is a failure to persist an audit event.
	ErrAudit = errors.New("audit failed")
)

// ExecutionError reports a failed scheduled execution.
type ExecutionError struct {
	Job    string
	Script string
	Cause  error
}

func (e *ExecutionError) Error() string {
	if e.Script == "" {
		return fmt.Sprintf("job %q: %v", e.Job, e.Cause)
	}
	return fmt.Sprintf("job %q script %q: %v", e.Job, e.Script, e.Cause)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecution, e.Cause}
}

// Invocation context keys.
const (
	KeyScript = "script"
	KeyInput  = "input"
)

// Trigger is a scheduled invocation.
type Trigger struct {
	JobName string
	// InvocationContext carries {"script": descriptor, "input": any}.
	InvocationContext map[string]any
}

// Execute compiles and evaluates the trigger's script with the input bound as
// "object". A descriptor without a name but with a file is named after the
// file.
func (s *Service) Execute(ctx context.Context, t Trigger) (any, error) {
	raw, ok := t.InvocationContext[KeyScript]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: job %q has no script", ErrJobConfig, t.JobName)
	}

	var d descriptor.Descriptor
	switch v := raw.(type) {
	case descriptor.Descriptor:
		d = v.Clone()
	case map[string]any:
		var err error
		if d, err = descriptor.FromMap(v); err != nil {
			return nil, &ExecutionError{Job: t.JobName, Cause: err}
		}
	default:
		return nil, &ExecutionError{
			Job:   t.JobName,
			Cause: fmt.Errorf("script descriptor must be an object, got %T", raw),
		}
	}
	if d.IsEmpty() {
		return nil, fmt.Errorf("%w: job %q has an empty script", ErrJobConfig, t.JobName)
	}
	if d.Name == "" && d.File != "" {
		d.Name = d.File
	}

	unit, err := s.cache.TakeUnit(ctx, d)
	if err != nil {
		return nil, &ExecutionError{Job: t.JobName, Script: d.Name, Cause: err}
	}

	bindings := s.bindingSet(map[string]any{"object": t.InvocationContext[KeyInput]})
	result, err := s.EvalUnit(ctx, unit, bindings)
	if err != nil {
		return nil, &ExecutionError{Job: t.JobName, Script: unit.Name(), Cause: err}
	}
	return result, nil
}

// Run statuses recorded in audit events.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// AuditEvent describes one scheduled run.
type AuditEvent struct {
	JobName  string
	RunID    string
	Script   string
	Status   string
	Duration time.Duration
	Error    string
	Logs     []string
}

func (e AuditEvent) content() map[string]any {
	logs := make([]any, len(e.Logs))
	for i, l := range e.Logs {
		logs[i] = l
	}
	return map[string]any{
		"jobName":  e.JobName,
		"runId":    e.RunID,
		"script":   e.Script,
		"status":   e.Status,
		"duration": e.Duration.Milliseconds(),
		"error":    e.Error,
		"logs":     logs,
	}
}

// Audit persists ev to audit/access. Without a bound accessor it does nothing.
func (s *Service) Audit(ctx context.Context, ev AuditEvent) error {
	accessor := s.resourceAccessor()
	if accessor == nil {
		return nil
	}
	if _, err := accessor.Create(ctx, resource.AuditAccessPath, ev.RunID, ev.content()); err != nil {
		s.logger.Error("Failed to write audit event", "job", ev.JobName, "runId", ev.RunID, "error", err)
		return fmt.Errorf("%w: job %q: %w", ErrAudit, ev.JobName, err)
	}
	return nil
}
