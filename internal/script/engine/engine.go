// Package engine defines the contract between the script cache and the language
// runtimes that compile and evaluate script source.
//
// An Engine compiles source of one MIME-like type ("text/starlark") into a
// Program. A Program evaluates against a binding map and reports a tagged
// Outcome rather than panicking or returning a thrown value as an error.
package engine

import (
	"context"
	"errors"
	"log/slog"
)

// Function is a host capability callable from script code. Returning a
// *fault.Fault lets the capability choose how the failure is classified.
type Function func(ctx context.Context, args ...any) (any, error)

// Engine compiles script source of a single type.
type Engine interface {
	// Type is the script type handled by this engine, e.g. "text/starlark".
	Type() string

	// Extensions lists file extensions used to infer Type from a file name.
	Extensions() []string

	// Compile parses and compiles source. The returned error describes a
	// syntax or resolution problem in the script.
	Compile(name, source string) (Program, error)
}

// Program is a compiled script, safe for concurrent evaluation.
type Program interface {
	Eval(ctx context.Context, bindings map[string]any) Outcome
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeDenied
	OutcomeFault
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomeDenied:
		return "denied"
	default:
		return "fault"
	}
}

// Outcome is the result of one evaluation.
type Outcome struct {
	Kind OutcomeKind
	// Value is the script result when Kind is OutcomeOk.
	Value any
	// Thrown is the textual form of the value thrown when Kind is OutcomeDenied.
	Thrown string
	// Err is the execution failure when Kind is OutcomeFault.
	Err error
}

func Ok(v any) Outcome { return Outcome{Kind: OutcomeOk, Value: v} }

func Denied(thrown string) Outcome { return Outcome{Kind: OutcomeDenied, Thrown: thrown} }

func Fault(err error) Outcome { return Outcome{Kind: OutcomeFault, Err: err} }

// ErrThrown matches every *Thrown error.
var ErrThrown = errors.New("script threw a value")

// Thrown is returned by a script-facing throw builtin. Engines detect it in
// the evaluation error chain and report OutcomeDenied.
type Thrown struct {
	Value string
}

func (t *Thrown) Error() string { return t.Value }

func (t *Thrown) Is(target error) bool { return target == ErrThrown }

// ThrownText extracts the thrown value text from err, if any.
func ThrownText(err error) (string, bool) {
	var t *Thrown
	if errors.As(err, &t) {
		return t.Value, true
	}
	return "", false
}

// IsCallable reports whether v is something an engine can expose as a
// function.
func IsCallable(v any) bool {
	switch v.(type) {
	case Function, func(context.Context, ...any) (any, error):
		return true
	}
	return false
}

// DataOnly returns a copy of bindings with callables removed, recursing into
// nested maps. Maps left empty after removal are dropped. It is used by
// engines that can only receive plain data.
func DataOnly(bindings map[string]any) map[string]any {
	out := make(map[string]any, len(bindings))
	for k, v := range bindings {
		if IsCallable(v) {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			inner := DataOnly(m)
			if len(inner) == 0 && len(m) > 0 {
				continue
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

type scriptNameKey struct{}

// WithScriptName records the name of the script being evaluated so
// capabilities can attribute their work.
func WithScriptName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scriptNameKey{}, name)
}

// ScriptName returns the name stored by WithScriptName, or "".
func ScriptName(ctx context.Context) string {
	name, _ := ctx.Value(scriptNameKey{}).(string)
	return name
}

type loggerKey struct{}

// WithLogger routes script console output for ctx to logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger stored by WithLogger, or fallback.
func Logger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
