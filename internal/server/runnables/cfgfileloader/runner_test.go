package cfgfileloader

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/atlanticdynamic/scriptgate/internal/server/finitestate"
	"github.com/atlanticdynamic/scriptgate/internal/telemetry"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/valid_config.toml
var validConfigTOML []byte

//go:embed testdata/updated_config.toml
var updatedConfigTOML []byte

//go:embed testdata/invalid_config.toml
var invalidConfigTOML []byte

func writeConfig(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scriptgate.toml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// startRunner runs r in the background and waits for it to be running.
func startRunner(t *testing.T, r *Runner) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()
	require.Eventually(t, r.IsRunning, time.Second, 10*time.Millisecond)
	return cancel, errCh
}

func receive(t *testing.T, ch <-chan *config.Config) *config.Config {
	t.Helper()
	select {
	case cfg := <-ch:
		return cfg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for config")
		return nil
	}
}

func TestNewRunner(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		runner, err := NewRunner("/test/path")
		require.NoError(t, err)
		assert.Equal(t, "/test/path", runner.filePath)
		assert.NotNil(t, runner.logger)
		assert.Equal(t, finitestate.StatusNew, runner.GetState())
		assert.Equal(t, "cfgfileloader.Runner", runner.String())
	})

	t.Run("options", func(t *testing.T) {
		type testKey string
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx := context.WithValue(context.Background(), testKey("test"), "value")

		runner, err := NewRunner("/test/path", WithLogger(logger), WithContext(ctx))
		require.NoError(t, err)
		assert.Equal(t, logger, runner.logger)
		assert.Equal(t, ctx, runner.parentCtx)
	})
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		runner, err := NewRunner("")
		require.NoError(t, err)

		cancel, errCh := startRunner(t, runner)
		assert.Nil(t, runner.getConfig())
		cancel()

		require.NoError(t, <-errCh)
		assert.Equal(t, finitestate.StatusStopped, runner.GetState())
	})

	t.Run("valid file", func(t *testing.T) {
		runner, err := NewRunner(writeConfig(t, validConfigTOML))
		require.NoError(t, err)

		cancel, errCh := startRunner(t, runner)
		cfg := runner.getConfig()
		require.NotNil(t, cfg)
		assert.Equal(t, "eu-west", cfg.Properties["region"])

		runner.Stop()
		require.NoError(t, <-errCh)
		cancel()
		assert.Nil(t, runner.getConfig())
	})

	t.Run("invalid file", func(t *testing.T) {
		runner, err := NewRunner(writeConfig(t, invalidConfigTOML))
		require.NoError(t, err)

		err = runner.Run(t.Context())
		require.ErrorIs(t, err, config.ErrFailedToValidateConfig)
		assert.Equal(t, finitestate.StatusError, runner.GetState())
	})

	t.Run("missing file", func(t *testing.T) {
		runner, err := NewRunner(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		require.ErrorIs(t, runner.Run(t.Context()), config.ErrFailedToLoadConfig)
	})
}

func TestRunner_Reload(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validConfigTOML)
	ctx, cancelParent := context.WithCancel(t.Context())
	defer cancelParent()

	metrics := telemetry.NewMetrics()
	runner, err := NewRunner(path, WithContext(ctx), WithMetrics(metrics))
	require.NoError(t, err)
	cancel, errCh := startRunner(t, runner)
	defer func() {
		cancel()
		<-errCh
	}()

	ch := runner.GetConfigChan()
	first := receive(t, ch)
	assert.Equal(t, "eu-west", first.Properties["region"])

	// unchanged file is not broadcast
	runner.Reload()
	select {
	case cfg := <-ch:
		t.Fatalf("unexpected broadcast: %v", cfg)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, updatedConfigTOML, 0o600))
	runner.Reload()
	updated := receive(t, ch)
	assert.Equal(t, "us-east", updated.Properties["region"])

	// an invalid file keeps the last valid config
	require.NoError(t, os.WriteFile(path, invalidConfigTOML, 0o600))
	runner.Reload()
	assert.Equal(t, "us-east", runner.getConfig().Properties["region"])

	expected := `
# HELP scriptgate_config_loads_total Config file loads by result (applied, unchanged, invalid)
# TYPE scriptgate_config_loads_total counter
scriptgate_config_loads_total{result="applied"} 2
scriptgate_config_loads_total{result="invalid"} 1
scriptgate_config_loads_total{result="unchanged"} 1
`
	require.NoError(t, promtestutil.GatherAndCompare(
		metrics.Registry(), strings.NewReader(expected), "scriptgate_config_loads_total",
	))

	cancelParent()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestRunner_ReloadWithoutPath(t *testing.T) {
	t.Parallel()

	runner, err := NewRunner("")
	require.NoError(t, err)
	runner.Reload()
	assert.Nil(t, runner.getConfig())
}
