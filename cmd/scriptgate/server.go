package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atlanticdynamic/scriptgate/cmd/scriptgate/server"
	"github.com/urfave/cli/v3"
)

var serverCmd = &cli.Command{
	Name:  "server",
	Usage: "Start the scriptgate server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to TOML configuration file",
			Aliases: []string{"c"},
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")
		if configPath == "" {
			return cli.Exit("the --config flag is required", 1)
		}

		if err := server.Run(ctx, slog.Default(), configPath, cmd.Root().Version); err != nil {
			return cli.Exit(fmt.Errorf("server failed: %w", err), 1)
		}
		return nil
	},
}
