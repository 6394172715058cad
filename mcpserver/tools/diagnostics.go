package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/octofhir/console-lsp/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DiagnosticsTool reports the current diagnostics for an open document.
// Diagnostics arrive asynchronously after edits; this returns whatever
// the server has published so far.
func DiagnosticsTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("diagnostics",
			mcp.WithDescription(`Show the language server diagnostics currently attached to an open document.

Diagnostics follow edits asynchronously: update the document, give the server a moment, then read them here.

PARAMETERS: uri (required)
OUTPUT: One diagnostic per line with 1-based positions, severity, code and message`),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI from document_open"), mcp.Required()),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := request.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			markers, err := b.Diagnostics(uri)
			if err != nil {
				logger.Error("diagnostics: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("diagnostics failed: %v", err)), nil
			}
			if len(markers) == 0 {
				return mcp.NewToolResultText("DIAGNOSTICS:\nNo problems reported."), nil
			}

			var sb strings.Builder
			sb.WriteString("DIAGNOSTICS:\n")
			fmt.Fprintf(&sb, "Count: %d\n\n", len(markers))
			for i, m := range markers {
				fmt.Fprintf(&sb, "%d. [%s] %d:%d-%d:%d %s", i+1, m.Severity,
					m.StartLine, m.StartColumn, m.EndLine, m.EndColumn, m.Message)
				if m.Code != "" {
					fmt.Fprintf(&sb, " (%s)", m.Code)
				}
				if m.Source != "" {
					fmt.Fprintf(&sb, " [%s]", m.Source)
				}
				sb.WriteString("\n")
			}
			return mcp.NewToolResultText(sb.String()), nil
		}
}

func RegisterDiagnosticsTool(mcpServer ToolServer, b ConsoleBridge) {
	mcpServer.AddTool(DiagnosticsTool(b))
}
