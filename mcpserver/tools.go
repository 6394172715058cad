package mcpserver

import (
	"github.com/octofhir/console-lsp/mcpserver/tools"
)

// RegisterAllTools registers the console tool surface with the server.
func RegisterAllTools(mcpServer tools.ToolServer, b tools.ConsoleBridge) {
	// Connection visibility
	tools.RegisterLSPStatusTool(mcpServer, b)

	// Document lifecycle
	tools.RegisterDocumentTools(mcpServer, b)

	// Language intelligence
	tools.RegisterCompletionTool(mcpServer, b)
	tools.RegisterHoverTool(mcpServer, b)
	tools.RegisterFormatDocumentTool(mcpServer, b)
	tools.RegisterDiagnosticsTool(mcpServer, b)
}
