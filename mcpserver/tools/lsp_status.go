package tools

import (
	"context"
	"encoding/json"

	"github.com/octofhir/console-lsp/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LSPStatusTool reports connection state, open documents and warm-up
// progress per configured language.
func LSPStatusTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_status",
			mcp.WithDescription("Show the connection state of every configured language server, the documents currently open on each, and warm-up progress. Useful for checking whether a server is ready before issuing completion or formatting requests."),
			mcp.WithDestructiveHintAnnotation(false),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			status := b.Status()

			payload, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			logger.Debug("lsp_status: reported status")
			return mcp.NewToolResultText(string(payload)), nil
		}
}

func RegisterLSPStatusTool(mcpServer ToolServer, b ConsoleBridge) {
	mcpServer.AddTool(LSPStatusTool(b))
}
