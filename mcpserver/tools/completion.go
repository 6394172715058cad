package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/octofhir/console-lsp/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CompletionTool requests completions at a cursor position in an open
// document.
func CompletionTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("completion",
			mcp.WithDescription(`Get completion suggestions at a cursor position in an open document.

USAGE:
- completion: uri="inmemory://console/scratch.sql", line=0, character=7
- after typing a trigger character: trigger="."

PARAMETERS: uri (required), line/character (required, 0-based), trigger (optional)
OUTPUT: One suggestion per line: label, kind, insert text and detail`),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI from document_open"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character position (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithString("trigger", mcp.Description("Trigger character that caused the completion, if any")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := request.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			line, character, err := positionArgs(request)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			trigger := request.GetString("trigger", "")

			list, err := b.Completion(uri, line, character, trigger)
			if err != nil {
				logger.Error("completion: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("completion failed: %v", err)), nil
			}

			if len(list.Items) == 0 {
				return mcp.NewToolResultText("COMPLETION:\nNo suggestions."), nil
			}

			var sb strings.Builder
			sb.WriteString("COMPLETION:\n")
			fmt.Fprintf(&sb, "Count: %d\n\n", len(list.Items))
			for i, item := range list.Items {
				fmt.Fprintf(&sb, "%d. %s [%s]", i+1, item.Label, item.Kind)
				if item.InsertText != "" && item.InsertText != item.Label {
					fmt.Fprintf(&sb, " insert=%q", item.InsertText)
				}
				if item.IsSnippet {
					sb.WriteString(" (snippet)")
				}
				if item.Detail != "" {
					fmt.Fprintf(&sb, " - %s", item.Detail)
				}
				sb.WriteString("\n")
			}
			if list.Incomplete {
				sb.WriteString("\n(list incomplete; narrow the prefix for more)\n")
			}
			return mcp.NewToolResultText(sb.String()), nil
		}
}

func RegisterCompletionTool(mcpServer ToolServer, b ConsoleBridge) {
	mcpServer.AddTool(CompletionTool(b))
}

// positionArgs extracts the required line/character pair.
func positionArgs(request mcp.CallToolRequest) (uint32, uint32, error) {
	line, err := request.RequireInt("line")
	if err != nil {
		return 0, 0, err
	}
	character, err := request.RequireInt("character")
	if err != nil {
		return 0, 0, err
	}
	lineU, err := safeUint32(line)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid line: %w", err)
	}
	charU, err := safeUint32(character)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid character: %w", err)
	}
	return lineU, charU, nil
}

func safeUint32(v int) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return uint32(v), nil
}
