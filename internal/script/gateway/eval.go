package gateway

import (
	"context"

	"github.com/atlanticdynamic/scriptgate/internal/script/cache"
	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

// EvalUnit installs bindings on unit and evaluates it once. Globals already on
// the unit take precedence over bindings, and protected bindings take
// precedence over everything.
func (s *Service) EvalUnit(ctx context.Context, unit *cache.Unit, bindings map[string]any) (any, error) {
	if !unit.IsActive() {
		return nil, fault.ClientInput("Script is null or inactive.")
	}

	globals := unit.Globals()
	for k, v := range bindings {
		if _, isGlobal := globals[k]; isGlobal && !IsProtected(k) {
			continue
		}
		unit.Put(k, v)
	}

	out := unit.Eval(ctx)
	switch out.Kind {
	case engine.OutcomeOk:
		return out.Value, nil
	case engine.OutcomeDenied:
		return nil, fault.Denied(out.Thrown)
	default:
		s.logger.Debug("Script evaluation failed", "script", unit.Name(), "error", out.Err)
		return nil, fault.As(out.Err)
	}
}
