// Package mcp is a small client for the scriptgate MCP tools.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names served by the gateway.
const (
	ToolCompile = "script_compile"
	ToolEval    = "script_eval"
)

// Session is a connected MCP session.
type Session struct {
	session *mcpsdk.ClientSession
}

// Connect opens a streamable HTTP session with the MCP endpoint at url.
func Connect(ctx context.Context, url string, httpClient *http.Client) (*Session, error) {
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "scriptgate-client", Version: "dev"}, nil)
	transport := &mcpsdk.StreamableClientTransport{Endpoint: url, HTTPClient: httpClient}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return &Session{session: session}, nil
}

// Tools lists the tool names offered by the server.
func (s *Session) Tools(ctx context.Context) ([]string, error) {
	res, err := s.session.ListTools(ctx, &mcpsdk.ListToolsParams{})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(res.Tools))
	for i, tool := range res.Tools {
		names[i] = tool.Name
	}
	return names, nil
}

// Eval calls script_eval and returns the JSON text of the result.
func (s *Session) Eval(ctx context.Context, script, bindings map[string]any) (string, error) {
	return s.call(ctx, ToolEval, script, bindings)
}

// Compile calls script_compile.
func (s *Session) Compile(ctx context.Context, script map[string]any) error {
	_, err := s.call(ctx, ToolCompile, script, nil)
	return err
}

func (s *Session) call(ctx context.Context, tool string, script, bindings map[string]any) (string, error) {
	args := map[string]any{"script": script}
	if bindings != nil {
		args["bindings"] = bindings
	}

	res, err := s.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, c := range res.Content {
		tc, ok := c.(*mcpsdk.TextContent)
		if !ok {
			return "", fmt.Errorf("%w: %T", ErrUnsupportedContent, c)
		}
		text.WriteString(tc.Text)
	}
	if res.IsError {
		return "", fmt.Errorf("%w: %s", ErrToolFailed, text.String())
	}
	return text.String(), nil
}

// Close ends the session.
func (s *Session) Close() error {
	return s.session.Close()
}
