package gateway

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

// Actions accepted on the script collection.
const (
	ActionCompile = "compile"
	ActionEval    = "eval"
)

// Operation names a non-action request verb.
type Operation string

const (
	OpCreate Operation = "Create"
	OpRead   Operation = "Read"
	OpUpdate Operation = "Update"
	OpPatch  Operation = "Patch"
	OpQuery  Operation = "Query"
	OpDelete Operation = "Delete"
)

// Request is an action request against the script endpoint.
type Request struct {
	// ResourcePath addresses an instance below the collection. It must be
	// empty; instances are never addressable.
	ResourcePath string
	Action       string
	// Content holds descriptor fields plus arbitrary binding fields.
	Content map[string]any
	// Params are action-level parameters, merged into the bindings.
	Params map[string]any
}

// HandleAction runs compile or eval. compile returns true; eval returns the
// script result.
func (s *Service) HandleAction(ctx context.Context, req Request) (result any, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = fault.KindOf(err).String()
		}
		s.metrics.RecordAction(req.Action, outcome, time.Since(start))
	}()

	if path := strings.Trim(req.ResourcePath, "/"); path != "" {
		return nil, fault.NotSupported("Actions on script %q are not supported", path)
	}

	switch req.Action {
	case ActionCompile, ActionEval:
	default:
		return nil, fault.ClientInput("Unsupported action: %s", req.Action)
	}

	d, bindings, err := descriptor.Partition(req.Content)
	if err != nil {
		return nil, err
	}
	maps.Copy(bindings, req.Params)

	unit, err := s.cache.TakeUnit(ctx, d)
	if err != nil {
		return nil, fault.As(err)
	}
	if !unit.IsActive() {
		return nil, fault.Unavailable("Script engine for %q is not available", unit.Type())
	}

	if req.Action == ActionCompile {
		return true, nil
	}
	return s.EvalUnit(ctx, unit, s.bindingSet(bindings))
}

// HandleOperation rejects every non-action verb.
func (s *Service) HandleOperation(_ context.Context, op Operation, resourcePath string) error {
	s.logger.Debug("Rejecting operation", "operation", op, "path", resourcePath)
	return fault.NotSupported("%s operations are not supported", op)
}
