// Package mcpapi exposes script compile and eval as MCP tools.
package mcpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolCompile = "script_compile"
	ToolEval    = "script_eval"
)

// Dispatcher runs script actions. *gateway.Service implements it.
type Dispatcher interface {
	HandleAction(ctx context.Context, req gateway.Request) (any, error)
}

// ScriptInput is the argument object of both tools.
type ScriptInput struct {
	Script   map[string]any `json:"script" jsonschema:"script descriptor: name, source, type, file, globals"`
	Bindings map[string]any `json:"bindings,omitempty" jsonschema:"variables bound for the evaluation"`
}

type settings struct {
	logger  *slog.Logger
	version string
}

// Option configures the MCP server.
type Option func(*settings)

// WithLogHandler sets the log handler.
func WithLogHandler(handler slog.Handler) Option {
	return func(s *settings) {
		if handler != nil {
			s.logger = slog.New(handler).WithGroup("mcpapi")
		}
	}
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) Option {
	return func(s *settings) {
		s.version = v
	}
}

// NewServer builds an MCP server with the compile and eval tools.
func NewServer(d Dispatcher, opts ...Option) *mcpsdk.Server {
	cfg := settings{logger: slog.Default().WithGroup("mcpapi"), version: "dev"}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "scriptgate",
		Version: cfg.version,
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolCompile,
		Description: "Compile a script and report whether it is valid",
	}, toolHandler(d, logger, gateway.ActionCompile))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolEval,
		Description: "Compile and evaluate a script with the given bindings",
	}, toolHandler(d, logger, gateway.ActionEval))

	return server
}

// NewHandler serves the tools over streamable HTTP.
func NewHandler(d Dispatcher, opts ...Option) http.Handler {
	server := NewServer(d, opts...)
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return server
	}, nil)
}

func toolHandler(
	d Dispatcher,
	logger *slog.Logger,
	action string,
) func(context.Context, *mcpsdk.CallToolRequest, ScriptInput) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcpsdk.CallToolRequest, in ScriptInput) (*mcpsdk.CallToolResult, any, error) {
		content := make(map[string]any, len(in.Script)+len(in.Bindings))
		maps.Copy(content, in.Bindings)
		maps.Copy(content, in.Script)

		result, err := d.HandleAction(ctx, gateway.Request{Action: action, Content: content})
		if err != nil {
			logger.Debug("Tool call failed", "tool", action, "error", err)
			return errorResult(err), nil, nil
		}

		text, err := json.Marshal(result)
		if err != nil {
			return errorResult(fmt.Errorf("result is not JSON: %w", err)), nil, nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(text)}},
		}, nil, nil
	}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}
