package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/atlanticdynamic/scriptgate/internal/fancy"
	"github.com/charmbracelet/lipgloss/tree"
)

// String returns a pretty-printed tree representation of the config
func (c *Config) String() string {
	return ConfigTree(c)
}

// ConfigTree converts a Config struct into a rendered tree string
func ConfigTree(cfg *Config) string {
	t := fancy.Tree()
	t.Root(fancy.RootStyle.Render(fmt.Sprintf("Scriptgate Config (%s)", cfg.Version)))

	t.Child(cfg.Logging.ToTree().Tree())

	server := t.Child("Server")
	if cfg.Server.HTTPListen != "" {
		server.Child(fmt.Sprintf("HTTP: %s", cfg.Server.HTTPListen))
	}
	if cfg.Server.GRPCListen != "" {
		server.Child(fmt.Sprintf("gRPC: %s", cfg.Server.GRPCListen))
	}
	server.Child(fmt.Sprintf("MCP: %t", cfg.Server.MCP))
	for _, name := range slices.Sorted(maps.Keys(cfg.Server.Headers)) {
		server.Child(fmt.Sprintf("Header %s: %s", name, cfg.Server.Headers[name]))
	}

	props := fancy.BranchNode("Properties", fmt.Sprintf("(%d)", len(cfg.Properties)))
	for _, name := range slices.Sorted(maps.Keys(cfg.Properties)) {
		props.Child(fancy.PropertyStyle.Render(name))
	}
	t.Child(props)

	sources := fancy.BranchNode("Sources", fmt.Sprintf("(%d)", len(cfg.Sources)))
	for _, s := range cfg.Sources {
		sources.Child(s.Path)
	}
	t.Child(sources)

	resources := "disabled"
	if cfg.Resources.SQLitePath != "" {
		resources = cfg.Resources.SQLitePath
	}
	t.Child(fmt.Sprintf("Resources: %s", resources))
	t.Child(fmt.Sprintf("Crypto keys: %d", len(cfg.Crypto.Keys)))

	engines := t.Child("Engines")
	engines.Child(fmt.Sprintf("text/starlark: %t", cfg.Engines.StarlarkEnabled()))
	engines.Child(fmt.Sprintf("text/risor: %t", cfg.Engines.RisorEnabled()))

	functions := fancy.BranchNode("Functions", fmt.Sprintf("(%d)", len(cfg.Functions)))
	for _, fn := range cfg.Functions {
		ft := fancy.FunctionTree(fn.Name)
		ft.AddChild(scriptLabel(fn.Script.Name, fn.Script.File, fn.Script.Type))
		functions.Child(ft.Tree())
	}
	t.Child(functions)

	t.Child(schedulesTree(cfg.Schedules))

	return t.String()
}

func schedulesTree(schedules []Schedule) *tree.Tree {
	branch := fancy.BranchNode("Schedules", fmt.Sprintf("(%d)", len(schedules)))
	for _, s := range schedules {
		st := fancy.ScheduleTree(s.Name)
		st.AddChild(fmt.Sprintf("Interval: %s", s.Interval))
		st.AddChild(scriptLabel(s.Script.Name, s.Script.File, s.Script.Type))
		branch.Child(st.Tree())
	}
	return branch
}

func scriptLabel(name, file, scriptType string) string {
	label := "inline"
	switch {
	case name != "":
		label = name
	case file != "":
		label = file
	}
	if scriptType != "" {
		label = fmt.Sprintf("%s (%s)", label, scriptType)
	}
	return fancy.ScriptText(fancy.TruncateString(label, 60))
}
