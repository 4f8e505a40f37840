package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlanticdynamic/scriptgate/internal/script/cache"
	"github.com/atlanticdynamic/scriptgate/internal/script/capability"
	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
)

// FunctionProvider owns ad-hoc capabilities registered from configuration.
const FunctionProvider = "config"

// Reload applies settings. Identity properties and locations are replaced,
// the property cache is cleared, the root bindings are rebuilt and swapped in
// one step, and the script-backed functions are re-registered. Every function
// is attempted; failures are joined.
func (s *Service) Reload(ctx context.Context, settings Settings) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.identity.Update(settings.Locations, settings.IdentityProperties)
	s.cache.SetLoader(cache.NewDirLoader(settings.Sources...))
	s.root.Store(s.rootBindings(settings.Properties))
	s.properties.Clear()

	if _, ok := s.registry.Lookup("getProperty"); !ok {
		capability.BindIdentity(s.registry, s.identity, s.properties)
	}

	s.registry.RemoveProvider(FunctionProvider)
	var errs []error
	for _, sf := range settings.Functions {
		if err := s.registerScriptFunction(ctx, sf); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Debug("Gateway reloaded",
		"properties", len(settings.Properties),
		"sources", len(settings.Sources),
		"functions", len(settings.Functions),
	)
	return errors.Join(errs...)
}

func (s *Service) registerScriptFunction(ctx context.Context, sf ScriptFunction) error {
	if capability.IsReserved(sf.Name) {
		return fmt.Errorf("function %q: name is reserved", sf.Name)
	}

	// compile eagerly so a broken function fails the reload
	if _, err := s.cache.TakeUnit(ctx, sf.Script.Clone()); err != nil {
		return fmt.Errorf("function %q: %w", sf.Name, err)
	}

	script := sf.Script.Clone()
	fn := engine.Function(func(ctx context.Context, args ...any) (any, error) {
		unit, err := s.cache.TakeUnit(ctx, script.Clone())
		if err != nil {
			return nil, err
		}
		return s.EvalUnit(ctx, unit, s.bindingSet(map[string]any{"args": args}))
	})
	if !s.registry.Register(FunctionProvider, sf.Name, fn) {
		return fmt.Errorf("function %q: registration refused", sf.Name)
	}
	return nil
}
