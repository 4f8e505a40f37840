// Package cache resolves script descriptors to compiled units and keeps each
// compiled unit for the life of the process, keyed by its resolved name.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
	"github.com/gofrs/uuid/v5"
)

// Observer receives cache events, typically for metrics.
type Observer interface {
	Compiled(scriptType string, err error)
	Hit(scriptType string)
}

type nopObserver struct{}

func (nopObserver) Compiled(string, error) {}
func (nopObserver) Hit(string)             {}

type entry struct {
	name       string
	scriptType string
	source     string
	file       string
	program    engine.Program
	active     atomic.Bool
}

// Cache compiles descriptors through registered engines and memoizes the
// results by name. It is safe for concurrent use.
type Cache struct {
	logger   *slog.Logger
	hasher   Hasher
	observer Observer
	loader   atomic.Pointer[SourceLoader]

	mu      sync.RWMutex
	engines map[string]engine.Engine
	entries map[string]*entry

	// compiling holds one *sync.Mutex per resolved name so a name is
	// compiled at most once while other names compile in parallel.
	compiling sync.Map
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		logger:   slog.Default().WithGroup("script.Cache"),
		hasher:   SHA1Name,
		observer: nopObserver{},
		engines:  make(map[string]engine.Engine),
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loader.Load() == nil {
		c.SetLoader(NewDirLoader())
	}
	return c
}

// SetLoader replaces the loader used for file descriptors.
func (c *Cache) SetLoader(l SourceLoader) {
	c.loader.Store(&l)
}

// AddEngine registers e for its type. Units of that type left inactive by an
// earlier RemoveEngine are evicted so the next TakeUnit recompiles them.
func (c *Cache) AddEngine(e engine.Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engines[e.Type()] = e
	for name, ent := range c.entries {
		if ent.scriptType == e.Type() && !ent.active.Load() {
			delete(c.entries, name)
		}
	}
	c.logger.Debug("Engine added", "type", e.Type())
}

// RemoveEngine unregisters the engine for scriptType and deactivates every
// unit it compiled.
func (c *Cache) RemoveEngine(scriptType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.engines, scriptType)
	for _, ent := range c.entries {
		if ent.scriptType == scriptType {
			ent.active.Store(false)
		}
	}
	c.logger.Debug("Engine removed", "type", scriptType)
}

// EngineTypes lists the registered script types, sorted.
func (c *Cache) EngineTypes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.engines))
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every cached unit.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// TakeUnit resolves d to a name and returns a unit handle for it, compiling on
// first use. Globals are stripped before compilation and bound onto the
// returned handle. A unit whose type has no engine is returned inactive.
func (c *Cache) TakeUnit(ctx context.Context, d descriptor.Descriptor) (*Unit, error) {
	globals := d.Globals
	d = d.WithoutGlobals()

	resolved, err := Resolve(d, c.hasher)
	if err != nil {
		if fault.KindOf(err) == fault.KindClientInput {
			return nil, err
		}
		c.logger.Warn("Unable to derive script name, compiling without caching", "error", err)
	}
	d = resolved

	if d.Type == "" {
		d.Type = c.inferType(d)
	}

	ent, err := c.lookupOrCompile(ctx, d)
	if err != nil {
		return nil, err
	}
	return newUnit(ent, globals), nil
}

func (c *Cache) inferType(d descriptor.Descriptor) string {
	path := d.File
	if path == "" && d.Source == "" {
		path = d.Name
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.engines {
		if slices.Contains(e.Extensions(), ext) {
			return e.Type()
		}
	}
	return ""
}

func (c *Cache) lookup(d descriptor.Descriptor) (*entry, bool) {
	if d.Name == "" {
		return nil, false
	}

	c.mu.RLock()
	ent, ok := c.entries[d.Name]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	switch {
	case d.Source != "":
		if ent.source != d.Source || ent.scriptType != d.Type {
			return nil, false
		}
	case d.File != "":
		if ent.file != d.File {
			return nil, false
		}
	}

	c.observer.Hit(ent.scriptType)
	return ent, true
}

func (c *Cache) lookupOrCompile(_ context.Context, d descriptor.Descriptor) (*entry, error) {
	if ent, ok := c.lookup(d); ok {
		return ent, nil
	}

	if d.Name != "" {
		lock := c.nameLock(d.Name)
		lock.Lock()
		defer lock.Unlock()

		if ent, ok := c.lookup(d); ok {
			return ent, nil
		}
	}

	source := d.Source
	file := d.File
	if source == "" {
		if file == "" {
			file = d.Name
		}
		src, err := (*c.loader.Load()).Load(file)
		if errors.Is(err, ErrSourceNotFound) {
			return nil, fault.ClientInput("script %q not found", file)
		}
		if err != nil {
			return nil, fault.Internal(err)
		}
		source = src
	}

	if d.Type == "" {
		return nil, fault.ClientInput("script type is required for %q", displayName(d))
	}

	c.mu.RLock()
	eng, ok := c.engines[d.Type]
	c.mu.RUnlock()

	name := d.Name
	cacheable := name != ""
	if !cacheable {
		name = uuid.Must(uuid.NewV4()).String()
	}

	ent := &entry{name: name, scriptType: d.Type, source: d.Source, file: file}
	if !ok {
		c.logger.Warn("No engine for script type", "type", d.Type, "script", name)
		return ent, nil
	}

	prog, err := eng.Compile(name, source)
	c.observer.Compiled(d.Type, err)
	if err != nil {
		return nil, fault.Wrap(fault.KindCompile, err, fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	ent.program = prog
	ent.active.Store(true)

	if cacheable {
		c.mu.Lock()
		c.entries[name] = ent
		c.mu.Unlock()
		c.logger.Debug("Compiled script", "script", name, "type", d.Type)
	}
	return ent, nil
}

func (c *Cache) nameLock(name string) *sync.Mutex {
	lock, _ := c.compiling.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func displayName(d descriptor.Descriptor) string {
	if d.Name != "" {
		return d.Name
	}
	return "<inline>"
}
