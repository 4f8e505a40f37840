// Package config holds the gateway configuration model and its TOML loader.
package config

import (
	"github.com/atlanticdynamic/scriptgate/internal/config/logs"
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
)

const (
	VersionLatest  = "v1"
	VersionUnknown = "unknown"
)

// Config is the complete gateway configuration.
type Config struct {
	Version   string      `toml:"version"`
	Logging   logs.Config `toml:"logging"`
	Server    Server      `toml:"server"`
	Identity  Identity    `toml:"identity"`
	Sources   []Source    `toml:"sources"`
	Crypto    Crypto      `toml:"crypto"`
	Resources Resources   `toml:"resources"`
	Engines   Engines     `toml:"engines"`
	Functions []Function  `toml:"functions"`
	Schedules []Schedule  `toml:"schedules"`

	// Properties are bound as top-level variables in every script.
	Properties map[string]any `toml:"properties" env_interpolation:"yes"`
}

// Server configures the network surfaces.
type Server struct {
	HTTPListen string `toml:"http_listen" env_interpolation:"yes"`
	GRPCListen string `toml:"grpc_listen" env_interpolation:"yes"`
	// MCP serves the MCP tools on the HTTP listener under /mcp.
	MCP          bool              `toml:"mcp"`
	Headers      map[string]string `toml:"headers" env_interpolation:"yes"`
	ReadTimeout  Duration          `toml:"read_timeout"`
	WriteTimeout Duration          `toml:"write_timeout"`
	DrainTimeout Duration          `toml:"drain_timeout"`
}

// Identity configures the identity server.
type Identity struct {
	WorkingLocation string         `toml:"working_location" env_interpolation:"yes"`
	ProjectLocation string         `toml:"project_location" env_interpolation:"yes"`
	InstallLocation string         `toml:"install_location" env_interpolation:"yes"`
	Properties      map[string]any `toml:"properties" env_interpolation:"yes"`
}

// Source is a directory searched for file descriptors.
type Source struct {
	Path string `toml:"path" env_interpolation:"yes"`
}

// Crypto configures the crypto service.
type Crypto struct {
	DefaultHashAlgorithm string `toml:"default_hash_algorithm"`
	DefaultCipher        string `toml:"default_cipher"`
	// Keys maps an alias to a base64 encoded key.
	Keys map[string]string `toml:"keys" env_interpolation:"yes"`
}

// Resources configures the resource store. An empty path disables the
// resource capabilities and auditing.
type Resources struct {
	SQLitePath string `toml:"sqlite_path" env_interpolation:"yes"`
}

// Engines toggles the script engines. Both are enabled unless set to false.
type Engines struct {
	Starlark *bool `toml:"starlark"`
	Risor    *bool `toml:"risor"`
}

// StarlarkEnabled reports whether text/starlark scripts are served.
func (e Engines) StarlarkEnabled() bool { return e.Starlark == nil || *e.Starlark }

// RisorEnabled reports whether text/risor scripts are served.
func (e Engines) RisorEnabled() bool { return e.Risor == nil || *e.Risor }

// Function registers a script as an ad-hoc capability.
type Function struct {
	Name   string                `toml:"name"`
	Script descriptor.Descriptor `toml:"script"`
}

// Schedule runs a script on an interval.
type Schedule struct {
	Name     string                `toml:"name"`
	Interval Duration              `toml:"interval"`
	Script   descriptor.Descriptor `toml:"script"`
	Input    any                   `toml:"input"`
}

// SourceDirs returns the source paths in declaration order.
func (c *Config) SourceDirs() []string {
	dirs := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		dirs = append(dirs, s.Path)
	}
	return dirs
}
