package tools

import (
	"context"
	"fmt"

	"github.com/octofhir/console-lsp/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DocumentOpenTool opens a console buffer and binds it to the language's
// server (didOpen). The returned URI keys all subsequent operations.
func DocumentOpenTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("document_open",
			mcp.WithDescription(`Open a document for a language and start syncing it with that language server.

USAGE:
- document_open: language="sql", name="scratch.sql", text="select 1"

PARAMETERS: language (required), name (required), text (optional, defaults empty)
OUTPUT: The document URI to use with document_update/completion/hover/format_document/diagnostics`),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("language", mcp.Description("Language id (e.g. sql, fhirpath)"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Buffer name; bare names become inmemory:// URIs"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Initial document text")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			language, err := request.RequireString("language")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			name, err := request.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text := request.GetString("text", "")

			uri, err := b.OpenDocument(language, name, text)
			if err != nil {
				logger.Error("document_open: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("open failed: %v", err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("OPENED: %s", uri)), nil
		}
}

// DocumentUpdateTool replaces a document's text. The change reaches the
// server as a debounced full-text didChange.
func DocumentUpdateTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("document_update",
			mcp.WithDescription("Replace the full text of an open document. The language server receives the new content after the debounce interval; diagnostics follow asynchronously."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI from document_open"), mcp.Required()),
			mcp.WithString("text", mcp.Description("New full document text"), mcp.Required()),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := request.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := request.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := b.UpdateDocument(uri, text); err != nil {
				logger.Error("document_update: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("UPDATED: %s", uri)), nil
		}
}

// DocumentCloseTool closes a document (didClose) and drops its buffer.
func DocumentCloseTool(b ConsoleBridge) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("document_close",
			mcp.WithDescription("Close an open document and stop syncing it with its language server."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI from document_open"), mcp.Required()),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := request.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := b.CloseDocument(uri); err != nil {
				logger.Error("document_close: failed", err)
				return mcp.NewToolResultError(fmt.Sprintf("close failed: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("CLOSED: %s", uri)), nil
		}
}

func RegisterDocumentTools(mcpServer ToolServer, b ConsoleBridge) {
	mcpServer.AddTool(DocumentOpenTool(b))
	mcpServer.AddTool(DocumentUpdateTool(b))
	mcpServer.AddTool(DocumentCloseTool(b))
}
