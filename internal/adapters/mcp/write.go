package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canvaslink/internal/application/commands"
	"canvaslink/internal/domain"
)

// RegisterWriteTools adds all tools that change canvases or groups to the MCP server.
func RegisterWriteTools(s *server.MCPServer, svc Services) {
	s.AddTool(deriveTool(), deriveHandler(svc))
	s.AddTool(linkTool(), linkHandler(svc))
	s.AddTool(unlinkGroupTool(), unlinkGroupHandler(svc))
	s.AddTool(unlinkCanvasTool(), unlinkCanvasHandler(svc))
	s.AddTool(resetGroupsTool(), resetGroupsHandler(svc))
	s.AddTool(createNodeTool(), createNodeHandler(svc))
	s.AddTool(deleteNodeTool(), deleteNodeHandler(svc))
	s.AddTool(updateNodeTextTool(), updateNodeTextHandler(svc))
}

// --- derive_linked_canvas ---

func deriveTool() mcp.Tool {
	return mcp.NewTool("derive_linked_canvas",
		mcp.WithDescription("Copy a canvas to its next version (Map.canvas → MapC1.canvas, MapC1 → MapC2, ...) and link the copy with the original so later edits propagate."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the canvas to derive from"),
			mcp.Required(),
		),
	)
}

func deriveHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewDeriveCommand(svc.Engine, nil, req.GetString("path", ""), false)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- link_canvases ---

func linkTool() mcp.Tool {
	return mcp.NewTool("link_canvases",
		mcp.WithDescription("Link existing canvases into one group. At most one of them may already be linked; the others join its group."),
		mcp.WithArray("paths",
			mcp.Description("Two or more vault-relative canvas paths"),
			mcp.WithStringItems(),
			mcp.Required(),
		),
	)
}

func linkHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := req.GetStringSlice("paths", nil)

		cmd := commands.NewLinkCommand(svc.Registry, svc.Store, paths)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- unlink_group ---

func unlinkGroupTool() mcp.Tool {
	return mcp.NewTool("unlink_group",
		mcp.WithDescription("Remove a linkage group. Its canvases stay on disk but stop syncing."),
		mcp.WithString("group_id",
			mcp.Description("Group ID as shown by list_groups"),
			mcp.Required(),
		),
	)
}

func unlinkGroupHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewUnlinkGroupCommand(svc.Registry, req.GetString("group_id", ""))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s: %s", result.Message, strings.Join(result.Members, ", "))), nil
	}
}

// --- unlink_canvas ---

func unlinkCanvasTool() mcp.Tool {
	return mcp.NewTool("unlink_canvas",
		mcp.WithDescription("Remove one canvas from its linkage group. A group left empty is removed."),
		mcp.WithString("path",
			mcp.Description("Vault-relative canvas path"),
			mcp.Required(),
		),
	)
}

func unlinkCanvasHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewUnlinkDocumentCommand(svc.Registry, req.GetString("path", ""))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- reset_groups ---

func resetGroupsTool() mcp.Tool {
	return mcp.NewTool("reset_groups",
		mcp.WithDescription("Remove every linkage group. Requires confirm=true."),
		mcp.WithBoolean("confirm",
			mcp.Description("Must be true"),
			mcp.Required(),
		),
	)
}

func resetGroupsHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !req.GetBool("confirm", false) {
			return toolError(fmt.Errorf("reset_groups removes every group; call it again with confirm=true"))
		}

		result, err := commands.NewResetGroupsCommand(svc.Registry).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- create_node ---

func createNodeTool() mcp.Tool {
	return mcp.NewTool("create_node",
		mcp.WithDescription("Add a node to a canvas. If the canvas is linked, the node is added to every linked canvas too."),
		mcp.WithString("path",
			mcp.Description("Vault-relative canvas path"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("Node type"),
			mcp.Enum("text", "file", "link", "group"),
		),
		mcp.WithString("content",
			mcp.Description("Text for text nodes, vault file for file nodes, URL for link nodes, label for groups"),
		),
		mcp.WithString("node_id",
			mcp.Description("Node ID. Generated when omitted."),
		),
		mcp.WithNumber("x", mcp.Description("Left edge")),
		mcp.WithNumber("y", mcp.Description("Top edge")),
		mcp.WithNumber("width", mcp.Description("Width, default 250")),
		mcp.WithNumber("height", mcp.Description("Height, default 60")),
	)
}

func createNodeHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spec := commands.NodeSpec{
			ID:      req.GetString("node_id", ""),
			Type:    domain.NodeType(req.GetString("type", string(domain.NodeTypeText))),
			Content: req.GetString("content", ""),
			X:       req.GetInt("x", 0),
			Y:       req.GetInt("y", 0),
			Width:   req.GetInt("width", 0),
			Height:  req.GetInt("height", 0),
		}
		node, err := spec.Build()
		if err != nil {
			return toolError(err)
		}

		cmd := commands.NewCreateNodeCommand(svc.Store, svc.Engine, svc.Registry, req.GetString("path", ""), node)
		return editResult(cmd.Execute(ctx))
	}
}

// --- delete_node ---

func deleteNodeTool() mcp.Tool {
	return mcp.NewTool("delete_node",
		mcp.WithDescription("Remove a node and its edges from a canvas and every canvas linked with it."),
		mcp.WithString("path",
			mcp.Description("Vault-relative canvas path"),
			mcp.Required(),
		),
		mcp.WithString("node_id",
			mcp.Description("ID of the node to delete"),
			mcp.Required(),
		),
	)
}

func deleteNodeHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewDeleteNodeCommand(svc.Store, svc.Engine, svc.Registry,
			req.GetString("path", ""), req.GetString("node_id", ""))
		return editResult(cmd.Execute(ctx))
	}
}

// --- update_node_text ---

func updateNodeTextTool() mcp.Tool {
	return mcp.NewTool("update_node_text",
		mcp.WithDescription("Replace the text of a text node on a canvas and every canvas linked with it."),
		mcp.WithString("path",
			mcp.Description("Vault-relative canvas path"),
			mcp.Required(),
		),
		mcp.WithString("node_id",
			mcp.Description("ID of the node to edit"),
			mcp.Required(),
		),
		mcp.WithString("text",
			mcp.Description("New text (Markdown)"),
			mcp.Required(),
		),
	)
}

func updateNodeTextHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewSetNodeTextCommand(svc.Store, svc.Engine, svc.Registry,
			req.GetString("path", ""), req.GetString("node_id", ""), req.GetString("text", ""))
		return editResult(cmd.Execute(ctx))
	}
}

func editResult(result *commands.EditNodeResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (node %s)", result.Message, result.Operation.NodeID)), nil
}
