package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// TestServerCmd_EmptyFlags verifies that running the server with no flags returns an error
func TestServerCmd_EmptyFlags(t *testing.T) {
	t.Parallel()
	cmd := &cli.Command{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
		},
	}

	result := serverCmd.Action(context.Background(), cmd)

	var exitErr cli.ExitCoder
	ok := errors.As(result, &exitErr)
	require.True(t, ok, "Expected cli.ExitCoder, got %T", result)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Equal(t, "the --config flag is required", exitErr.Error())
}

func TestNewApp(t *testing.T) {
	t.Parallel()
	app := newApp()

	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"server", "validate", "eval", "version"}, names)
	assert.Equal(t, Version, app.Version)
}
