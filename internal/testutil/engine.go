package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
)

// ExampleType is the script type served by ExampleEngine.
const ExampleType = "text/example"

// ExampleEngine is a tiny engine for tests. A script is one of:
//
//	1+2+object         sum of integer literals and numeric bindings
//	throw some text    denies with "some text"
//	fail some text     fails with an internal error
//	call fn arg...     calls the capability openidm[fn] with string args
//	echo name          returns the binding called name
//
// Anything else is a compile error. Compiles counts every successful compile.
type ExampleEngine struct {
	Compiles atomic.Int64
}

func (e *ExampleEngine) Type() string { return ExampleType }

func (e *ExampleEngine) Extensions() []string { return []string{".example"} }

func (e *ExampleEngine) Compile(name, source string) (engine.Program, error) {
	source = strings.TrimSpace(source)
	verb, rest, _ := strings.Cut(source, " ")

	var prog engine.Program
	switch verb {
	case "throw":
		prog = exampleThrow(rest)
	case "fail":
		prog = exampleFail(rest)
	case "call":
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%s: call needs a function name", name)
		}
		prog = exampleCall{fn: fields[0], args: fields[1:]}
	case "echo":
		if rest == "" {
			return nil, fmt.Errorf("%s: echo needs a binding name", name)
		}
		prog = exampleEcho(rest)
	default:
		terms := strings.Split(source, "+")
		for _, term := range terms {
			if strings.TrimSpace(term) == "" {
				return nil, fmt.Errorf("%s: syntax error near %q", name, source)
			}
		}
		prog = exampleSum(terms)
	}

	e.Compiles.Add(1)
	return prog, nil
}

type exampleThrow string

func (p exampleThrow) Eval(context.Context, map[string]any) engine.Outcome {
	return engine.Denied(string(p))
}

type exampleFail string

func (p exampleFail) Eval(context.Context, map[string]any) engine.Outcome {
	return engine.Fault(errors.New(string(p)))
}

type exampleEcho string

func (p exampleEcho) Eval(_ context.Context, bindings map[string]any) engine.Outcome {
	return engine.Ok(bindings[string(p)])
}

type exampleCall struct {
	fn   string
	args []string
}

func (p exampleCall) Eval(ctx context.Context, bindings map[string]any) engine.Outcome {
	ns, _ := bindings["openidm"].(map[string]any)
	var fn engine.Function
	switch f := ns[p.fn].(type) {
	case engine.Function:
		fn = f
	case func(context.Context, ...any) (any, error):
		fn = f
	default:
		return engine.Fault(fmt.Errorf("undefined function %q", p.fn))
	}

	args := make([]any, len(p.args))
	for i, a := range p.args {
		args[i] = a
	}
	out, err := fn(ctx, args...)
	if err != nil {
		return engine.Fault(err)
	}
	return engine.Ok(out)
}

type exampleSum []string

func (p exampleSum) Eval(_ context.Context, bindings map[string]any) engine.Outcome {
	var total int64
	for _, term := range p {
		term = strings.TrimSpace(term)
		if n, err := strconv.ParseInt(term, 10, 64); err == nil {
			total += n
			continue
		}
		switch v := bindings[term].(type) {
		case int:
			total += int64(v)
		case int64:
			total += v
		case float64:
			total += int64(v)
		default:
			return engine.Fault(fmt.Errorf("term %q is not a number", term))
		}
	}
	return engine.Ok(total)
}
