// Package capability maintains the named host functions scripts may call and
// the standard groups of them: resource access, crypto, identity-server
// accessors and console logging.
//
// The Registry is copy-on-write. Writers serialize on a mutex and publish a
// fresh immutable map; readers load the current map without locking, so a
// Snapshot never observes a partially applied group change.
package capability

import (
	"log/slog"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
)

// Function is a host capability callable from scripts.
type Function = engine.Function

var reserved = map[string]struct{}{
	"create":             {},
	"read":               {},
	"update":             {},
	"patch":              {},
	"query":              {},
	"delete":             {},
	"action":             {},
	"encrypt":            {},
	"decrypt":            {},
	"isEncrypted":        {},
	"isHashed":           {},
	"matches":            {},
	"getProperty":        {},
	"getWorkingLocation": {},
	"getProjectLocation": {},
	"getInstallLocation": {},
}

// IsReserved reports whether name belongs to a standard group and may not be
// registered ad hoc.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

type entry struct {
	provider string
	fn       Function
}

type table = map[string]entry

// Registry maps capability names to functions, remembering which provider
// installed each one.
type Registry struct {
	logger   *slog.Logger
	onChange func(size int)

	mu      sync.Mutex
	current atomic.Pointer[table]
}

// NewRegistry creates an empty registry. onChange, when non-nil, is called
// with the new size after every mutation.
func NewRegistry(handler slog.Handler, onChange func(size int)) *Registry {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	r := &Registry{
		logger:   slog.New(handler).WithGroup("capability.Registry"),
		onChange: onChange,
	}
	empty := make(table)
	r.current.Store(&empty)
	return r
}

// Register adds an ad-hoc function. Blank and reserved names are refused and
// logged; the return value reports whether fn was installed. A name already
// held by another provider is taken over.
func (r *Registry) Register(provider, name string, fn Function) bool {
	if strings.TrimSpace(name) == "" {
		r.logger.Warn("Refusing capability with blank name", "provider", provider)
		return false
	}
	if IsReserved(name) {
		r.logger.Warn("Refusing capability with reserved name", "provider", provider, "name", name)
		return false
	}
	if fn == nil {
		r.logger.Warn("Refusing nil capability", "provider", provider, "name", name)
		return false
	}

	r.mutate(func(t table) {
		t[name] = entry{provider: provider, fn: fn}
	})
	r.logger.Debug("Capability registered", "provider", provider, "name", name)
	return true
}

// Unregister removes name if, and only if, provider installed it.
func (r *Registry) Unregister(provider, name string) bool {
	removed := false
	r.mutate(func(t table) {
		if e, ok := t[name]; ok && e.provider == provider {
			delete(t, name)
			removed = true
		}
	})
	if removed {
		r.logger.Debug("Capability unregistered", "provider", provider, "name", name)
	}
	return removed
}

// RemoveProvider removes every entry installed by provider in one step and
// returns how many were removed.
func (r *Registry) RemoveProvider(provider string) int {
	n := 0
	r.mutate(func(t table) {
		for name, e := range t {
			if e.provider == provider {
				delete(t, name)
				n++
			}
		}
	})
	if n > 0 {
		r.logger.Debug("Provider removed", "provider", provider, "count", n)
	}
	return n
}

// installGroup publishes a standard group in one step. Group members bypass
// the reserved-name check.
func (r *Registry) installGroup(provider string, fns map[string]Function) {
	r.mutate(func(t table) {
		for name, fn := range fns {
			t[name] = entry{provider: provider, fn: fn}
		}
	})
	r.logger.Debug("Capability group installed", "provider", provider, "count", len(fns))
}

// Snapshot returns the current functions by name. The map is owned by the
// caller.
func (r *Registry) Snapshot() map[string]Function {
	t := *r.current.Load()
	out := make(map[string]Function, len(t))
	for name, e := range t {
		out[name] = e.fn
	}
	return out
}

// Lookup returns a single function.
func (r *Registry) Lookup(name string) (Function, bool) {
	e, ok := (*r.current.Load())[name]
	return e.fn, ok
}

// Providers returns the owner of every registered name.
func (r *Registry) Providers() map[string]string {
	t := *r.current.Load()
	out := make(map[string]string, len(t))
	for name, e := range t {
		out[name] = e.provider
	}
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(*r.current.Load())
}

// Clear removes everything.
func (r *Registry) Clear() {
	r.mutate(func(t table) { clear(t) })
}

func (r *Registry) mutate(fn func(table)) {
	r.mu.Lock()
	next := maps.Clone(*r.current.Load())
	fn(next)
	r.current.Store(&next)
	size := len(next)
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(size)
	}
}
