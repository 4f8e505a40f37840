package config

import (
	"github.com/atlanticdynamic/scriptgate/internal/identity"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
)

// GatewaySettings returns the reloadable gateway settings.
func (c *Config) GatewaySettings() gateway.Settings {
	functions := make([]gateway.ScriptFunction, 0, len(c.Functions))
	for _, fn := range c.Functions {
		functions = append(functions, gateway.ScriptFunction{Name: fn.Name, Script: fn.Script.Clone()})
	}

	return gateway.Settings{
		Properties:         c.Properties,
		IdentityProperties: c.Identity.Properties,
		Locations: identity.Locations{
			Working: c.Identity.WorkingLocation,
			Project: c.Identity.ProjectLocation,
			Install: c.Identity.InstallLocation,
		},
		Sources:   c.SourceDirs(),
		Functions: functions,
	}
}

// Trigger builds the scheduled invocation for s.
func (s Schedule) Trigger() gateway.Trigger {
	return gateway.Trigger{
		JobName: s.Name,
		InvocationContext: map[string]any{
			gateway.KeyScript: s.Script.Map(),
			gateway.KeyInput:  s.Input,
		},
	}
}
