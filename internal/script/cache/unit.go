package cache

import (
	"context"
	"maps"

	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
)

// Unit is a caller's handle on a cached compiled script. The compiled program
// is shared; the bindings put on a Unit are private to it.
type Unit struct {
	entry    *entry
	globals  map[string]any
	bindings map[string]any
}

func newUnit(ent *entry, globals map[string]any) *Unit {
	u := &Unit{
		entry:    ent,
		globals:  maps.Clone(globals),
		bindings: make(map[string]any, len(globals)),
	}
	maps.Copy(u.bindings, globals)
	return u
}

// Name is the resolved identity of the script.
func (u *Unit) Name() string { return u.entry.name }

// Type is the script type the unit was compiled as.
func (u *Unit) Type() string { return u.entry.scriptType }

// IsActive reports whether u is usable. A nil unit is inactive.
func (u *Unit) IsActive() bool {
	return u != nil && u.entry != nil && u.entry.program != nil && u.entry.active.Load()
}

// Globals returns the literal globals bound when the unit was taken.
func (u *Unit) Globals() map[string]any { return maps.Clone(u.globals) }

// Put binds a value for subsequent evaluations of this handle.
func (u *Unit) Put(key string, value any) { u.bindings[key] = value }

// Bindings returns a copy of the current bindings.
func (u *Unit) Bindings() map[string]any { return maps.Clone(u.bindings) }

// Eval runs the compiled program against the handle's bindings.
func (u *Unit) Eval(ctx context.Context) engine.Outcome {
	return u.entry.program.Eval(engine.WithScriptName(ctx, u.entry.name), u.bindings)
}
