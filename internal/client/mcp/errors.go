package mcp

import "errors"

var (
	ErrConnect            = errors.New("failed to connect to MCP endpoint")
	ErrToolFailed         = errors.New("tool call failed")
	ErrUnsupportedContent = errors.New("unsupported content type")
)
