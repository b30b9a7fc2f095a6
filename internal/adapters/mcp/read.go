// Package mcp exposes linkage groups and canvas edits as MCP tools
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canvaslink/internal/application/commands"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// Services are what the tools operate on
type Services struct {
	Registry ports.GroupRegistry
	Engine   ports.SyncEngine
	Store    ports.DocumentStore
}

// RegisterReadTools adds all read-only tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, svc Services) {
	s.AddTool(listGroupsTool(), listGroupsHandler(svc))
	s.AddTool(findGroupTool(), findGroupHandler(svc))
	s.AddTool(listCanvasesTool(), listCanvasesHandler(svc))
	s.AddTool(readCanvasTool(), readCanvasHandler(svc))
}

// --- list_groups ---

func listGroupsTool() mcp.Tool {
	return mcp.NewTool("list_groups",
		mcp.WithDescription("List every linkage group: its ID, member canvases in order, and when it last synced."),
	)
}

func listGroupsHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groups, err := commands.NewListGroupsCommand(svc.Registry).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if len(groups) == 0 {
			return mcp.NewToolResultText("No linkage groups."), nil
		}

		var sb strings.Builder
		for _, g := range groups {
			formatGroup(&sb, g)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- find_group ---

func findGroupTool() mcp.Tool {
	return mcp.NewTool("find_group",
		mcp.WithDescription("Show the linkage group a canvas belongs to."),
		mcp.WithString("path",
			mcp.Description("Vault-relative canvas path (e.g. boards/Map.canvas)"),
			mcp.Required(),
		),
	)
}

func findGroupHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, err := commands.NewFindGroupCommand(svc.Registry, req.GetString("path", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		formatGroup(&sb, *g)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- list_canvases ---

func listCanvasesTool() mcp.Tool {
	return mcp.NewTool("list_canvases",
		mcp.WithDescription("List every canvas in the vault, marking the linked ones."),
	)
}

func listCanvasesHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths, err := svc.Store.List(ctx)
		if err != nil {
			return toolError(err)
		}
		if len(paths) == 0 {
			return mcp.NewToolResultText("No canvases."), nil
		}

		var sb strings.Builder
		for _, p := range paths {
			sb.WriteString(p)
			if g, ok := svc.Registry.FindGroupContaining(p); ok {
				fmt.Fprintf(&sb, "  (linked, group %s)", g.ID)
			}
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- read_canvas ---

func readCanvasTool() mcp.Tool {
	return mcp.NewTool("read_canvas",
		mcp.WithDescription("Summarise the nodes of a canvas: ID, type, and text, file or URL."),
		mcp.WithString("path",
			mcp.Description("Vault-relative canvas path"),
			mcp.Required(),
		),
	)
}

func readCanvasHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return toolError(fmt.Errorf("path is required"))
		}

		content, err := svc.Store.Read(ctx, path)
		if err != nil {
			return toolError(err)
		}
		c, err := domain.ParseCanvas(content)
		if err != nil {
			return toolError(err)
		}

		nodes := c.Nodes()
		if len(nodes) == 0 {
			return mcp.NewToolResultText("Empty canvas."), nil
		}
		var sb strings.Builder
		for _, n := range nodes {
			fmt.Fprintf(&sb, "%s  %s  %s\n", n.ID(), n.Type(), nodeSummary(n))
		}
		fmt.Fprintf(&sb, "%d nodes, %d edges\n", len(nodes), len(c.Edges()))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatGroup(sb *strings.Builder, g domain.LinkageGroup) {
	synced := "never"
	if !g.LastSyncedAt.IsZero() {
		synced = g.LastSyncedAt.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(sb, "%s  last synced %s\n", g.ID, synced)
	for _, m := range g.Members {
		fmt.Fprintf(sb, "  %s\n", m)
	}
}

func nodeSummary(n *domain.Node) string {
	switch n.Type() {
	case domain.NodeTypeFile:
		return n.File()
	case domain.NodeTypeLink:
		return n.URL()
	case domain.NodeTypeGroup:
		var label string
		if raw, ok := n.Raw("label"); ok {
			_ = json.Unmarshal(raw, &label)
		}
		return label
	}
	text, _ := n.Text()
	if r := []rune(text); len(r) > 80 {
		text = string(r[:77]) + "..."
	}
	return strings.ReplaceAll(text, "\n", " ")
}
