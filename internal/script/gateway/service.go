// Package gateway is the script execution gateway: it resolves and compiles
// script descriptors through the cache, builds the binding set every script
// sees, dispatches compile and eval actions, and runs scheduled invocations.
package gateway

import (
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/atlanticdynamic/scriptgate/internal/identity"
	"github.com/atlanticdynamic/scriptgate/internal/resource"
	"github.com/atlanticdynamic/scriptgate/internal/script/cache"
	"github.com/atlanticdynamic/scriptgate/internal/script/capability"
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
)

// Protected root binding names. They are reinstalled on every reload and never
// overwritten by properties, request parameters or globals.
const (
	BindingIdentityServer = "identityServer"
	BindingConsole        = "console"
	BindingRegistry       = "openidm"
)

// IsProtected reports whether key names a protected root binding.
func IsProtected(key string) bool {
	switch key {
	case BindingIdentityServer, BindingConsole, BindingRegistry:
		return true
	}
	return false
}

// Settings is the reloadable part of the gateway configuration.
type Settings struct {
	// Properties become top-level bindings for every script.
	Properties map[string]any
	// IdentityProperties answer identityServer.getProperty.
	IdentityProperties map[string]any
	Locations          identity.Locations
	// Sources are searched for file descriptors, later entries first.
	Sources   []string
	Functions []ScriptFunction
}

// ScriptFunction registers a script as an ad-hoc capability. The script sees
// its call arguments bound as "args".
type ScriptFunction struct {
	Name   string
	Script descriptor.Descriptor
}

type accessorRef struct {
	resource.Accessor
}

// Service is the gateway. It is safe for concurrent use.
type Service struct {
	logger     *slog.Logger
	cache      *cache.Cache
	registry   *capability.Registry
	identity   *identity.Server
	properties *identity.PropertyCache
	metrics    *telemetry.Metrics

	accessor atomic.Pointer[accessorRef]
	root     atomic.Pointer[map[string]any]

	reloadMu sync.Mutex
}

// New creates a gateway. Without WithCache it compiles nothing until engines
// are added to Cache().
func New(opts ...Option) *Service {
	s := &Service{
		logger:     slog.Default().WithGroup("gateway.Service"),
		identity:   identity.NewServer(identity.Locations{}, nil),
		properties: &identity.PropertyCache{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = capability.NewRegistry(s.logger.Handler(), s.metrics.SetCapabilities)
	}
	if s.cache == nil {
		s.cache = cache.New(cache.WithLogger(s.logger), cache.WithObserver(s.metrics))
	}

	capability.BindIdentity(s.registry, s.identity, s.properties)
	s.root.Store(s.rootBindings(nil))
	return s
}

// Cache returns the script cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Registry returns the capability registry.
func (s *Service) Registry() *capability.Registry { return s.registry }

// Identity returns the identity server.
func (s *Service) Identity() *identity.Server { return s.identity }

// BindResources makes accessor available to scripts and to Audit.
func (s *Service) BindResources(accessor resource.Accessor) {
	s.accessor.Store(&accessorRef{accessor})
	capability.BindResources(s.registry, accessor)
}

// UnbindResources withdraws the resource group. Audit becomes a no-op.
func (s *Service) UnbindResources() {
	s.accessor.Store(nil)
	capability.UnbindResources(s.registry)
}

// BindCrypto makes the crypto group available to scripts.
func (s *Service) BindCrypto(svc capability.CryptoService) {
	capability.BindCrypto(s.registry, svc)
}

// UnbindCrypto withdraws the crypto group.
func (s *Service) UnbindCrypto() {
	capability.UnbindCrypto(s.registry)
}

func (s *Service) resourceAccessor() resource.Accessor {
	if ref := s.accessor.Load(); ref != nil {
		return ref.Accessor
	}
	return nil
}

// rootBindings builds the root layer from configured properties and the
// protected bindings. The registry view is added per evaluation.
func (s *Service) rootBindings(properties map[string]any) *map[string]any {
	root := make(map[string]any, len(properties)+2)
	for k, v := range properties {
		if IsProtected(k) {
			s.logger.Warn("Ignoring property with protected name", "name", k)
			continue
		}
		root[k] = v
	}

	accessors := capability.IdentityAccessors(s.identity, s.properties)
	identityServer := make(map[string]any, len(accessors))
	for name, fn := range accessors {
		identityServer[name] = fn
	}
	root[BindingIdentityServer] = identityServer
	root[BindingConsole] = capability.Console(s.logger.WithGroup("console"))
	return &root
}

// bindingSet layers root bindings, the live registry view and params. Params
// never replace a protected binding.
func (s *Service) bindingSet(params map[string]any) map[string]any {
	out := maps.Clone(*s.root.Load())

	snapshot := s.registry.Snapshot()
	view := make(map[string]any, len(snapshot))
	for name, fn := range snapshot {
		view[name] = fn
	}
	out[BindingRegistry] = view

	for k, v := range params {
		if IsProtected(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Close deactivates the gateway: capabilities, cached properties and root
// bindings are cleared.
func (s *Service) Close() {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.accessor.Store(nil)
	s.registry.Clear()
	s.properties.Clear()
	empty := map[string]any{}
	s.root.Store(&empty)
	s.logger.Debug("Gateway closed")
}
