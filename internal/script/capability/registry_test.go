package capability

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) Function {
	return func(context.Context, ...any) (any, error) { return v, nil }
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fnName   string
		fn       Function
		accepted bool
	}{
		{"ad hoc name", "frobnicate", constant(1), true},
		{"reserved resource name", "read", constant(1), false},
		{"reserved identity name", "getProperty", constant(1), false},
		{"blank name", "  ", constant(1), false},
		{"nil function", "frobnicate", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRegistry(nil, nil)
			assert.Equal(t, tt.accepted, r.Register("p", tt.fnName, tt.fn))
			_, found := r.Lookup(tt.fnName)
			assert.Equal(t, tt.accepted, found)
		})
	}
}

func TestRegistry_ProviderScopedRemoval(t *testing.T) {
	t.Parallel()

	var sizes []int
	r := NewRegistry(nil, func(size int) { sizes = append(sizes, size) })

	require.True(t, r.Register("alpha", "one", constant(1)))
	require.True(t, r.Register("alpha", "two", constant(2)))
	require.True(t, r.Register("beta", "three", constant(3)))

	assert.False(t, r.Unregister("beta", "one"), "beta does not own one")
	assert.Equal(t, 3, r.Len())

	assert.True(t, r.Unregister("alpha", "one"))
	assert.Equal(t, 1, r.RemoveProvider("alpha"))
	assert.Equal(t, map[string]string{"three": "beta"}, r.Providers())

	r.Clear()
	assert.Zero(t, r.Len())
	assert.Equal(t, []int{1, 2, 3, 3, 2, 1, 0}, sizes)
}

func TestRegistry_TakeOverByAnotherProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, nil)
	require.True(t, r.Register("alpha", "shared", constant("a")))
	require.True(t, r.Register("beta", "shared", constant("b")))

	assert.Zero(t, r.RemoveProvider("alpha"))
	fn, ok := r.Lookup("shared")
	require.True(t, ok)
	v, err := fn(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestRegistry_SnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, nil)
	require.True(t, r.Register("p", "one", constant(1)))

	snap := r.Snapshot()
	snap["injected"] = constant(2)
	require.True(t, r.Register("p", "two", constant(2)))

	assert.Len(t, snap, 2)
	_, found := r.Lookup("injected")
	assert.False(t, found)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_GroupsAreAtomic(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, nil)
	group := CryptoFunctions(nil)

	var wg sync.WaitGroup
	var torn atomic.Int64
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			n := len(r.Snapshot())
			if n != 0 && n != len(group) {
				torn.Add(1)
			}
		}
	}()

	for range 200 {
		r.installGroup(CryptoProvider, group)
		UnbindCrypto(r)
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, torn.Load())
}
