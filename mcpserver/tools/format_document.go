package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/octofhir/console-lsp/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FormatDocumentTool requests whole-document formatting edits.
func FormatDocumentTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("format_document",
			mcp.WithDescription(`Format an open document through its language server.

PARAMETERS: uri (required), tab_size (optional, default 2), insert_spaces (optional, default true)
OUTPUT: The text edits the server proposes, as 0-based ranges with replacement text`),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI from document_open"), mcp.Required()),
			mcp.WithNumber("tab_size", mcp.Description("Indentation width"), mcp.Min(1)),
			mcp.WithBoolean("insert_spaces", mcp.Description("Indent with spaces instead of tabs")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := request.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			tabSize, err := safeUint32(request.GetInt("tab_size", 2))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid tab_size: %v", err)), nil
			}
			insertSpaces := request.GetBool("insert_spaces", true)

			edits, err := b.FormatDocument(uri, tabSize, insertSpaces)
			if err != nil {
				logger.Error("format_document: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("formatting failed: %v", err)), nil
			}
			if len(edits) == 0 {
				return mcp.NewToolResultText("FORMAT:\nNo edits; document already formatted."), nil
			}

			var sb strings.Builder
			sb.WriteString("FORMAT:\n")
			fmt.Fprintf(&sb, "Edits: %d\n\n", len(edits))
			for i, e := range edits {
				fmt.Fprintf(&sb, "%d. %d:%d-%d:%d -> %q\n", i+1,
					e.Range.Start.Line, e.Range.Start.Character,
					e.Range.End.Line, e.Range.End.Character,
					e.NewText)
			}
			return mcp.NewToolResultText(sb.String()), nil
		}
}

func RegisterFormatDocumentTool(mcpServer ToolServer, b ConsoleBridge) {
	mcpServer.AddTool(FormatDocumentTool(b))
}
