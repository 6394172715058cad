package tools

import (
	"context"
	"fmt"

	"github.com/octofhir/console-lsp/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// HoverTool requests hover documentation at a cursor position.
func HoverTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("hover",
			mcp.WithDescription(`Get hover documentation for the symbol at a cursor position in an open document.

PARAMETERS: uri (required), line/character (required, 0-based)
OUTPUT: Markdown documentation, or a note when the server has nothing to say`),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI from document_open"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character position (0-based)"), mcp.Required(), mcp.Min(0)),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := request.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			line, character, err := positionArgs(request)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			h, err := b.Hover(uri, line, character)
			if err != nil {
				logger.Error("hover: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("hover failed: %v", err)), nil
			}
			if h == nil {
				return mcp.NewToolResultText("HOVER:\nNo documentation at this position."), nil
			}
			return mcp.NewToolResultText("HOVER:\n" + h.Contents), nil
		}
}

func RegisterHoverTool(mcpServer ToolServer, b ConsoleBridge) {
	mcpServer.AddTool(HoverTool(b))
}
