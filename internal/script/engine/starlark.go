package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// StarlarkType is the script type compiled by the Starlark engine.
const StarlarkType = "text/starlark"

// resultGlobal is the global a multi-statement Starlark script assigns to
// produce its result.
const resultGlobal = "result"

const contextLocal = "scriptgate.context"

var starlarkFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Starlark compiles and runs go.starlark.net programs. A source consisting of a
// single expression evaluates to that expression; otherwise the script's
// "result" global is returned. Scripts deny a request by calling throw(value).
type Starlark struct {
	logger *slog.Logger
}

// NewStarlark creates the Starlark engine. print() output goes to the logger.
func NewStarlark(handler slog.Handler) *Starlark {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &Starlark{logger: slog.New(handler).WithGroup("starlark")}
}

func (s *Starlark) Type() string { return StarlarkType }

func (s *Starlark) Extensions() []string { return []string{".star", ".starlark"} }

func (s *Starlark) Compile(name, source string) (Program, error) {
	if _, err := starlarkFileOptions.ParseExpr(name, source, 0); err == nil {
		source = resultGlobal + " = (" + source + "\n)"
	}

	f, err := starlarkFileOptions.Parse(name, source, 0)
	if err != nil {
		return nil, err
	}

	prog, err := starlark.FileProgram(f, isStarlarkPredeclared)
	if err != nil {
		return nil, err
	}

	return &starlarkProgram{name: name, prog: prog, logger: s.logger.With("script", name)}, nil
}

// Every free name that is not a Starlark builtin is resolved from bindings at
// evaluation time.
func isStarlarkPredeclared(name string) bool {
	_, universal := starlark.Universe[name]
	return !universal
}

type starlarkProgram struct {
	name   string
	prog   *starlark.Program
	logger *slog.Logger
}

func (p *starlarkProgram) Eval(ctx context.Context, bindings map[string]any) Outcome {
	predeclared := make(starlark.StringDict, len(bindings)+1)
	predeclared["throw"] = starlark.NewBuiltin("throw", starlarkThrow)
	for k, v := range bindings {
		sv, err := toStarlark(k, v)
		if err != nil {
			return Fault(fmt.Errorf("binding %q: %w", k, err))
		}
		predeclared[k] = sv
	}

	thread := &starlark.Thread{
		Name: p.name,
		Print: func(_ *starlark.Thread, msg string) {
			p.logger.Info(msg)
		},
	}
	thread.SetLocal(contextLocal, ctx)

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	globals, err := p.prog.Init(thread, predeclared)
	if err != nil {
		if text, ok := ThrownText(err); ok {
			return Denied(text)
		}
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			p.logger.Debug("Script failed", "backtrace", evalErr.Backtrace())
		}
		return Fault(err)
	}

	result, ok := globals[resultGlobal]
	if !ok {
		return Ok(nil)
	}
	return Ok(fromStarlark(result))
}

func starlarkThrow(
	_ *starlark.Thread,
	b *starlark.Builtin,
	args starlark.Tuple,
	kwargs []starlark.Tuple,
) (starlark.Value, error) {
	var v starlark.Value = starlark.None
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &v); err != nil {
		return nil, err
	}
	if s, ok := v.(starlark.String); ok {
		return nil, &Thrown{Value: string(s)}
	}
	return nil, &Thrown{Value: v.String()}
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextLocal).(context.Context); ok {
		return ctx
	}
	return context.Background()
}
