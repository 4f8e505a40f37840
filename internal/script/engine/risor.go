package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-polyscript/engines/risor"
	"github.com/robbyt/go-polyscript/platform"
	"github.com/robbyt/go-polyscript/platform/constants"
	"github.com/robbyt/go-polyscript/platform/data"
	"github.com/robbyt/go-polyscript/platform/script/loader"
)

// RisorType is the script type compiled by the Risor engine.
const RisorType = "text/risor"

// Risor compiles scripts through go-polyscript. Only plain data bindings reach
// the script, under ctx["name"]; capabilities are not callable from Risor.
type Risor struct {
	handler slog.Handler
}

// NewRisor creates the Risor engine.
func NewRisor(handler slog.Handler) *Risor {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &Risor{handler: handler}
}

func (r *Risor) Type() string { return RisorType }

func (r *Risor) Extensions() []string { return []string{".risor"} }

func (r *Risor) Compile(name, source string) (Program, error) {
	l, err := loader.NewFromString(source)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	ev, err := risor.FromRisorLoader(r.handler, l)
	if err != nil {
		return nil, err
	}

	return &risorProgram{evaluator: ev}, nil
}

type risorProgram struct {
	evaluator platform.Evaluator
}

func (p *risorProgram) Eval(ctx context.Context, bindings map[string]any) Outcome {
	provider := data.NewContextProvider(constants.EvalData)
	evalCtx, err := provider.AddDataToContext(ctx, DataOnly(bindings))
	if err != nil {
		return Fault(fmt.Errorf("preparing bindings: %w", err))
	}

	result, err := p.evaluator.Eval(evalCtx)
	if err != nil {
		return Fault(err)
	}
	return Ok(result.Interface())
}
