package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robbyt/go-supervisor/runnables/httpserver"
	supervisorHeaders "github.com/robbyt/go-supervisor/runnables/httpserver/middleware/headers"
)

// Route paths.
const (
	ScriptPath  = "/script"
	MetricsPath = "/metrics"
	MCPPath     = "/mcp"
)

// Routes builds the script routes plus /metrics and /mcp when their handlers
// are set. Every request is access logged and configured headers are set on
// every response.
func Routes(d Dispatcher, cfg Config, logger *slog.Logger) ([]httpserver.Route, error) {
	if logger == nil {
		logger = slog.Default()
	}
	middlewares := []httpserver.HandlerFunc{accessLog(logger)}
	if len(cfg.Headers) > 0 {
		set := make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			set.Set(k, v)
		}
		middlewares = append(middlewares, supervisorHeaders.NewWithOperations(supervisorHeaders.WithSet(set)))
	}

	script := NewScriptHandler(d, ScriptPath, logger)
	handlers := []struct {
		name    string
		path    string
		handler http.Handler
	}{
		{"script-collection", ScriptPath, script},
		{"script-instance", ScriptPath + "/", script},
		{"metrics", MetricsPath, cfg.Metrics},
		{"mcp", MCPPath, cfg.MCP},
	}

	routes := make([]httpserver.Route, 0, len(handlers))
	for _, h := range handlers {
		if h.handler == nil {
			continue
		}
		route, err := httpserver.NewRouteFromHandlerFunc(h.name, h.path, h.handler.ServeHTTP, middlewares...)
		if err != nil {
			return nil, fmt.Errorf("failed to create route %s: %w", h.name, err)
		}
		routes = append(routes, *route)
	}
	return routes, nil
}
