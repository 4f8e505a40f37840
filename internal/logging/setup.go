// Package logging builds the slog handlers used by the gateway: charm text
// output for terminals and JSON for log collectors.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/logging/writers"
	"github.com/charmbracelet/log"
)

// SetupHandlerText configures a text slog handler with the provided writer and log level
func SetupHandlerText(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	opts := log.Options{Level: log.InfoLevel}
	switch strings.ToLower(logLevel) {
	case "trace":
		opts.ReportCaller = true
		opts.ReportTimestamp = true
		opts.Level = log.DebugLevel
	case "debug":
		opts.ReportTimestamp = true
		opts.Level = log.DebugLevel
	case "warn", "warning":
		opts.Level = log.WarnLevel
	case "error":
		opts.Level = log.ErrorLevel
	}

	return log.NewWithOptions(writer, opts)
}

// SetupHandlerJSON configures a JSON slog handler with the provided writer and log level
func SetupHandlerJSON(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch strings.ToLower(logLevel) {
	case "trace":
		opts.AddSource = true
		opts.Level = slog.LevelDebug
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn", "warning":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	return slog.NewJSONHandler(writer, opts)
}

// NewHandler builds a handler for format ("text" or "json"), level and output
// (see writers.CreateWriter).
func NewHandler(format, level, output string) (slog.Handler, error) {
	w, err := writers.CreateWriter(output)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "", "text", "txt":
		if output == "" {
			w = os.Stderr
		}
		return SetupHandlerText(level, w), nil
	case "json":
		return SetupHandlerJSON(level, w), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

// SetupLogger configures the default logger based on provided log level
func SetupLogger(logLevel string) {
	slog.SetDefault(slog.New(SetupHandlerText(logLevel, nil)))
}
