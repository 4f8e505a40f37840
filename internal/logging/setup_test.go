package logging

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupHandlerText(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"trace", log.DebugLevel},
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"bogus", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			h := SetupHandlerText(tt.level, &bytes.Buffer{})
			logger, ok := h.(*log.Logger)
			require.True(t, ok)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestSetupHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(SetupHandlerJSON("warn", &buf))

	logger.Info("hidden")
	logger.Warn("shown", "script", "greeter")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"script":"greeter"`)
}

func TestNewHandler(t *testing.T) {
	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "gateway.log")
		h, err := NewHandler("json", "info", path)
		require.NoError(t, err)
		_, ok := h.(*slog.JSONHandler)
		assert.True(t, ok)
	})

	t.Run("text default", func(t *testing.T) {
		h, err := NewHandler("", "debug", "")
		require.NoError(t, err)
		_, ok := h.(*log.Logger)
		assert.True(t, ok)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := NewHandler("xml", "info", "stdout")
		require.Error(t, err)
	})

	t.Run("bad output", func(t *testing.T) {
		_, err := NewHandler("text", "info", "http://example.com")
		require.Error(t, err)
	})
}
