package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/urfave/cli/v3"
)

var validateCmd = &cli.Command{
	Name:      "validate",
	Aliases:   []string{"lint"},
	Usage:     "Validate one or more configuration files",
	ArgsUsage: "<config.toml>...",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "tree",
			Aliases: []string{"t"},
			Usage:   "Show detailed tree view of the validated configuration",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the configuration file",
		},
	},
	Suggest: true,
	Action:  validateAction,
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if configPath := cmd.String("config"); configPath != "" {
		paths = append([]string{configPath}, paths...)
	}
	if len(paths) == 0 {
		return errors.New(
			"config file path required (use the --config flag, or provide the config file as positional argument)",
		)
	}

	return validatePaths(cmd.Root().Writer, paths, cmd.Bool("tree"))
}

// validatePaths validates every path, printing a summary or tree for each
// valid file. Every invalid file is reported; the errors are joined.
func validatePaths(w io.Writer, paths []string, treeView bool) error {
	var errs []error
	for _, path := range paths {
		cfg, err := config.NewConfig(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		fmt.Fprintf(w, "Configuration file %s is valid\n", path)
		if treeView {
			fmt.Fprintln(w, cfg)
			continue
		}
		fmt.Fprintln(w, renderConfigSummary(path, cfg))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// renderConfigSummary creates a formatted summary string for the configuration
func renderConfigSummary(path string, cfg *config.Config) string {
	var summary strings.Builder

	summary.WriteString("\nConfig Summary:\n")
	fmt.Fprintf(&summary, "- Path: %s\n", path)
	fmt.Fprintf(&summary, "- Version: %s\n", cfg.Version)
	if cfg.Server.HTTPListen != "" {
		fmt.Fprintf(&summary, "- HTTP: %s\n", cfg.Server.HTTPListen)
	}
	if cfg.Server.GRPCListen != "" {
		fmt.Fprintf(&summary, "- gRPC: %s\n", cfg.Server.GRPCListen)
	}
	fmt.Fprintf(&summary, "- Properties: %d\n", len(cfg.Properties))
	fmt.Fprintf(&summary, "- Sources: %d\n", len(cfg.Sources))
	fmt.Fprintf(&summary, "- Functions: %d\n", len(cfg.Functions))
	fmt.Fprintf(&summary, "- Schedules: %d\n", len(cfg.Schedules))
	summary.WriteString("\nUse --tree for a more detailed view of the config.")

	return summary.String()
}
