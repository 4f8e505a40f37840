package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/client"
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/urfave/cli/v3"
)

var errNoScript = errors.New("one of --source or --file is required")

var evalCmd = &cli.Command{
	Name:  "eval",
	Usage: "Compile or evaluate a script on a running server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "server",
			Usage:    "Server gRPC address (tcp://host:port or unix:///path/to/socket)",
			Aliases:  []string{"s"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "type",
			Usage:   "Script type, e.g. text/starlark or text/risor",
			Aliases: []string{"t"},
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Inline script source",
		},
		&cli.StringFlag{
			Name:    "file",
			Usage:   "Script file, resolved against the server's source directories",
			Aliases: []string{"f"},
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Script name used as the cache key",
		},
		&cli.StringSliceFlag{
			Name:    "binding",
			Usage:   "Binding as key=value; JSON values are decoded, anything else is a string",
			Aliases: []string{"b"},
		},
		&cli.StringFlag{
			Name:    "action",
			Usage:   "Action to run: eval or compile",
			Aliases: []string{"a"},
			Value:   gateway.ActionEval,
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Timeout for the operation in seconds",
			Value: 10,
		},
	},
	Action: evalAction,
}

func evalAction(ctx context.Context, cmd *cli.Command) error {
	script, err := scriptFromFlags(cmd.String("name"), cmd.String("type"), cmd.String("source"), cmd.String("file"))
	if err != nil {
		return err
	}
	bindings, err := parseBindings(cmd.StringSlice("binding"))
	if err != nil {
		return err
	}

	if t := cmd.Int("timeout"); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t)*time.Second)
		defer cancel()
	}

	c := client.New(client.Config{
		Logger:     slog.Default(),
		ServerAddr: cmd.String("server"),
	})
	return runEval(ctx, c, cmd.String("action"), script, bindings, cmd.Root().Writer)
}

// runEval sends the script to the server and prints the result as JSON.
func runEval(
	ctx context.Context,
	c *client.Client,
	action string,
	script descriptor.Descriptor,
	bindings map[string]any,
	w io.Writer,
) error {
	switch action {
	case gateway.ActionCompile:
		if err := c.Compile(ctx, script); err != nil {
			return fmt.Errorf("compile failed: %w", err)
		}
		fmt.Fprintln(w, "Script compiled")
		return nil
	case gateway.ActionEval:
	default:
		return fmt.Errorf("unknown action %q, expected %s or %s", action, gateway.ActionEval, gateway.ActionCompile)
	}

	result, err := c.Eval(ctx, script, bindings)
	if err != nil {
		return fmt.Errorf("eval failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func scriptFromFlags(name, scriptType, source, file string) (descriptor.Descriptor, error) {
	if source == "" && file == "" {
		return descriptor.Descriptor{}, errNoScript
	}
	if source != "" && file != "" {
		return descriptor.Descriptor{}, errors.New("--source and --file are mutually exclusive")
	}
	return descriptor.Descriptor{Name: name, Type: scriptType, Source: source, File: file}, nil
}

// parseBindings turns key=value pairs into bindings. A value that parses as
// JSON is decoded, so n=5 binds a number and s="5" a string.
func parseBindings(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid binding %q, expected key=value", pair)
		}
		if descriptor.IsField(key) {
			return nil, fmt.Errorf("binding %q collides with a script field", key)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		out[key] = value
	}
	return out, nil
}
