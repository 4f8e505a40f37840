//go:build integration

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRisor_Eval(t *testing.T) {
	t.Parallel()

	e := NewRisor(nil)
	assert.Equal(t, RisorType, e.Type())

	prog, err := e.Compile("greeting", `
name := ctx.get("object", {}).get("name", "world")
"hello " + name
`)
	require.NoError(t, err)

	fn := Function(func(context.Context, ...any) (any, error) { return nil, nil })
	out := prog.Eval(t.Context(), map[string]any{
		"object":  map[string]any{"name": "risor"},
		"openidm": map[string]any{"read": fn},
	})
	require.Equal(t, OutcomeOk, out.Kind, "err: %v", out.Err)
	assert.Equal(t, "hello risor", out.Value)
}
