package capability

import (
	"context"

	"github.com/atlanticdynamic/scriptgate/internal/identity"
)

// IdentityProvider owns the identity-server accessors in the registry.
const IdentityProvider = "identity"

// BindIdentity pre-seeds the identity-server accessors.
func BindIdentity(r *Registry, server *identity.Server, cache *identity.PropertyCache) {
	r.installGroup(IdentityProvider, IdentityAccessors(server, cache))
}

// IdentityAccessors builds getProperty and the location getters. The property
// cache is always populated and consulted only when the third argument of
// getProperty is true.
func IdentityAccessors(server *identity.Server, cache *identity.PropertyCache) map[string]Function {
	return map[string]Function{
		"getProperty": func(_ context.Context, args ...any) (any, error) {
			if len(args) < 1 || len(args) > 3 {
				return nil, noSignature("getProperty", args)
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, noSignature("getProperty", args)
			}
			var fallback any
			if len(args) >= 2 {
				fallback = args[1]
			}
			useCache := false
			if len(args) == 3 {
				if useCache, ok = args[2].(bool); !ok {
					return nil, noSignature("getProperty", args)
				}
			}

			if useCache {
				if v, hit := cache.Get(name); hit {
					return v, nil
				}
			}
			v := server.Property(name)
			if v == nil {
				return fallback, nil
			}
			cache.Remember(name, v)
			return v, nil
		},
		"getWorkingLocation": func(_ context.Context, args ...any) (any, error) {
			if len(args) != 0 {
				return nil, noSignature("getWorkingLocation", args)
			}
			return server.Locations().Working, nil
		},
		"getProjectLocation": func(_ context.Context, args ...any) (any, error) {
			if len(args) != 0 {
				return nil, noSignature("getProjectLocation", args)
			}
			return server.Locations().Project, nil
		},
		"getInstallLocation": func(_ context.Context, args ...any) (any, error) {
			if len(args) != 0 {
				return nil, noSignature("getInstallLocation", args)
			}
			return server.Locations().Install, nil
		},
	}
}
