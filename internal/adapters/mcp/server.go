package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with every canvaslink tool registered
func NewServer(version string, svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"canvaslink-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	RegisterReadTools(s, svc)
	RegisterWriteTools(s, svc)
	return s
}
