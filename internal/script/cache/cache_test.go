package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
	"github.com/atlanticdynamic/scriptgate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *testutil.ExampleEngine) {
	t.Helper()
	eng := &testutil.ExampleEngine{}
	opts = append([]Option{WithEngines(eng)}, opts...)
	return New(opts...), eng
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("explicit name is kept", func(t *testing.T) {
		d, err := Resolve(descriptor.Descriptor{Name: "mine", Source: "1+1", File: "a.star"}, SHA1Name)
		require.NoError(t, err)
		assert.Equal(t, "mine", d.Name)
	})

	t.Run("file becomes name", func(t *testing.T) {
		d, err := Resolve(descriptor.Descriptor{File: "scripts/a.star", Source: "1+1"}, SHA1Name)
		require.NoError(t, err)
		assert.Equal(t, "scripts/a.star", d.Name)
	})

	t.Run("source is content addressed", func(t *testing.T) {
		a, err := Resolve(descriptor.Descriptor{Source: "1+1", Type: "text/example"}, SHA1Name)
		require.NoError(t, err)
		b, err := Resolve(descriptor.Descriptor{Source: "1+1", Type: "text/example"}, SHA1Name)
		require.NoError(t, err)
		c, err := Resolve(descriptor.Descriptor{Source: "1+1", Type: "text/starlark"}, SHA1Name)
		require.NoError(t, err)
		d, err := Resolve(descriptor.Descriptor{Source: "1+2", Type: "text/example"}, SHA1Name)
		require.NoError(t, err)

		assert.Equal(t, a.Name, b.Name)
		assert.NotEqual(t, a.Name, c.Name)
		assert.NotEqual(t, a.Name, d.Name)
		assert.Len(t, a.Name, 40)
		assert.Regexp(t, `^[0-9A-F]{40}$`, a.Name)
	})

	t.Run("empty descriptor", func(t *testing.T) {
		_, err := Resolve(descriptor.Descriptor{Type: "text/example"}, SHA1Name)
		require.Error(t, err)
		assert.Equal(t, fault.KindClientInput, fault.KindOf(err))
	})
}

func TestSHA1Name_KnownValue(t *testing.T) {
	t.Parallel()
	// sha1("abc")
	name, err := SHA1Name("ab", "c")
	require.NoError(t, err)
	assert.Equal(t, "A9993E364706816ABA3E25717850C26C9CD0D89D", name)
}

func TestCache_CompilesOnce(t *testing.T) {
	t.Parallel()

	c, eng := newTestCache(t)
	d := descriptor.Descriptor{Source: "1+1", Type: testutil.ExampleType}

	first, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)
	second, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)

	assert.Equal(t, first.Name(), second.Name())
	assert.EqualValues(t, 1, eng.Compiles.Load())
	assert.Equal(t, 1, c.Len())
	assert.True(t, first.IsActive())
}

func TestCache_GlobalsStrippedAndBound(t *testing.T) {
	t.Parallel()

	c, eng := newTestCache(t)

	a, err := c.TakeUnit(t.Context(), descriptor.Descriptor{
		Source: "1+limit", Type: testutil.ExampleType, Globals: map[string]any{"limit": 3},
	})
	require.NoError(t, err)
	b, err := c.TakeUnit(t.Context(), descriptor.Descriptor{
		Source: "1+limit", Type: testutil.ExampleType, Globals: map[string]any{"limit": 40},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, eng.Compiles.Load(), "globals must not affect identity")

	outA := a.Eval(t.Context())
	outB := b.Eval(t.Context())
	require.Equal(t, engine.OutcomeOk, outA.Kind)
	require.Equal(t, engine.OutcomeOk, outB.Kind)
	assert.Equal(t, int64(4), outA.Value)
	assert.Equal(t, int64(41), outB.Value)
	assert.Equal(t, map[string]any{"limit": 3}, a.Globals())
}

func TestCache_CompileError(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	_, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Source: "1++", Type: testutil.ExampleType})
	require.Error(t, err)
	assert.Equal(t, fault.KindCompile, fault.KindOf(err))
	assert.Equal(t, 0, c.Len())
}

func TestCache_UnknownTypeIsInactive(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	u, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Source: "1+1", Type: "text/cobol"})
	require.NoError(t, err)
	assert.False(t, u.IsActive())
}

func TestCache_MissingType(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	_, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Source: "1+1"})
	require.Error(t, err)
	assert.Equal(t, fault.KindClientInput, fault.KindOf(err))
}

func TestCache_EngineLifecycle(t *testing.T) {
	t.Parallel()

	c, eng := newTestCache(t)
	d := descriptor.Descriptor{Source: "2+2", Type: testutil.ExampleType}

	u, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)
	require.True(t, u.IsActive())

	c.RemoveEngine(testutil.ExampleType)
	assert.False(t, u.IsActive())
	assert.Empty(t, c.EngineTypes())

	again, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)
	assert.False(t, again.IsActive())

	c.AddEngine(eng)
	revived, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)
	assert.True(t, revived.IsActive())
	assert.EqualValues(t, 2, eng.Compiles.Load())
}

func TestCache_HashFailureSkipsCaching(t *testing.T) {
	t.Parallel()

	failing := func(string, string) (string, error) { return "", errors.New("digest unavailable") }
	c, eng := newTestCache(t, WithHasher(failing))
	d := descriptor.Descriptor{Source: "1+1", Type: testutil.ExampleType}

	a, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)
	b, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)

	assert.NotEqual(t, a.Name(), b.Name())
	assert.EqualValues(t, 2, eng.Compiles.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_ExplicitNameRecompilesOnChange(t *testing.T) {
	t.Parallel()

	c, eng := newTestCache(t)

	_, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Name: "calc", Source: "1+1", Type: testutil.ExampleType})
	require.NoError(t, err)
	u, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Name: "calc", Source: "2+2", Type: testutil.ExampleType})
	require.NoError(t, err)
	assert.EqualValues(t, 2, eng.Compiles.Load())
	assert.Equal(t, int64(4), u.Eval(t.Context()).Value)

	byName, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Name: "calc"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), byName.Eval(t.Context()).Value)
	assert.EqualValues(t, 2, eng.Compiles.Load())
}

func TestCache_FileDescriptors(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	override := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "calc.example"), []byte("1+1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(override, "calc.example"), []byte("5+5"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "only.example"), []byte("3+3"), 0o644))

	c, eng := newTestCache(t, WithLoader(NewDirLoader(base, override)))

	u, err := c.TakeUnit(t.Context(), descriptor.Descriptor{File: "calc.example"})
	require.NoError(t, err)
	assert.Equal(t, "calc.example", u.Name())
	assert.Equal(t, testutil.ExampleType, u.Type(), "type inferred from extension")
	assert.Equal(t, int64(10), u.Eval(t.Context()).Value, "later directories win")

	u, err = c.TakeUnit(t.Context(), descriptor.Descriptor{File: "only.example"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), u.Eval(t.Context()).Value)

	_, err = c.TakeUnit(t.Context(), descriptor.Descriptor{File: "calc.example"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, eng.Compiles.Load())

	_, err = c.TakeUnit(t.Context(), descriptor.Descriptor{File: "missing.example"})
	require.Error(t, err)
	assert.Equal(t, fault.KindClientInput, fault.KindOf(err))
}

func TestUnit_PutIsPrivate(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	d := descriptor.Descriptor{Source: "1+object", Type: testutil.ExampleType}

	a, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)
	b, err := c.TakeUnit(t.Context(), d)
	require.NoError(t, err)

	a.Put("object", 1)
	b.Put("object", 100)

	assert.Equal(t, int64(2), a.Eval(t.Context()).Value)
	assert.Equal(t, int64(101), b.Eval(t.Context()).Value)
	assert.Equal(t, map[string]any{"object": 1}, a.Bindings())
}

func TestUnit_NilIsInactive(t *testing.T) {
	t.Parallel()
	var u *Unit
	assert.False(t, u.IsActive())
}

// gatedEngine blocks in Compile until release is closed.
type gatedEngine struct {
	started  chan struct{}
	release  chan struct{}
	compiles atomic.Int64
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{started: make(chan struct{}, 4), release: make(chan struct{})}
}

func (e *gatedEngine) Type() string         { return "text/slow" }
func (e *gatedEngine) Extensions() []string { return nil }

func (e *gatedEngine) Compile(string, string) (engine.Program, error) {
	e.compiles.Add(1)
	e.started <- struct{}{}
	<-e.release
	return (&testutil.ExampleEngine{}).Compile("slow", "1+1")
}

func TestCache_CompileLocksPerName(t *testing.T) {
	t.Parallel()

	t.Run("other names are not blocked", func(t *testing.T) {
		t.Parallel()
		slow := newGatedEngine()
		c, _ := newTestCache(t, WithEngines(slow))

		slowDone := make(chan error, 1)
		go func() {
			_, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Source: "hang", Type: "text/slow"})
			slowDone <- err
		}()
		<-slow.started

		fastDone := make(chan error, 1)
		go func() {
			_, err := c.TakeUnit(t.Context(), descriptor.Descriptor{Source: "1+1", Type: testutil.ExampleType})
			fastDone <- err
		}()

		select {
		case err := <-fastDone:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("compile of another name waited for a blocked compile")
		}

		close(slow.release)
		require.NoError(t, <-slowDone)
	})

	t.Run("same name compiles once", func(t *testing.T) {
		t.Parallel()
		slow := newGatedEngine()
		c, _ := newTestCache(t, WithEngines(slow))
		d := descriptor.Descriptor{Source: "hang", Type: "text/slow"}

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for range 2 {
			wg.Go(func() {
				_, err := c.TakeUnit(t.Context(), d)
				errs <- err
			})
		}
		<-slow.started
		close(slow.release)
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		assert.EqualValues(t, 1, slow.compiles.Load())
	})
}
