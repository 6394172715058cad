// Package tools implements the MCP tool surface over the console bridge:
// headless document management plus completion, hover, formatting and
// diagnostics for agents and operational tooling.
package tools

import (
	"github.com/octofhir/console-lsp/bridge"
	"github.com/octofhir/console-lsp/editor"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolServer is the part of the MCP server the tools register against.
type ToolServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// ConsoleBridge is the tool-facing surface of the console bridge. Tests
// substitute a mock.
type ConsoleBridge interface {
	Status() Status
	OpenDocument(language, name, text string) (string, error)
	UpdateDocument(uri, text string) error
	CloseDocument(uri string) error
	Completion(uri string, line, character uint32, trigger string) (editor.CompletionList, error)
	Hover(uri string, line, character uint32) (*editor.Hover, error)
	FormatDocument(uri string, tabSize uint32, insertSpaces bool) ([]editor.TextEdit, error)
	Diagnostics(uri string) ([]editor.Marker, error)
}

// Status describes every configured language connection.
type Status struct {
	Languages []LanguageStatus    `json:"languages"`
	Warmup    bridge.WarmupStatus `json:"warmup"`
}

// LanguageStatus is one language's connection state.
type LanguageStatus struct {
	Language  string   `json:"language"`
	State     string   `json:"state"`
	Connected bool     `json:"connected"`
	Documents []string `json:"documents,omitempty"`
	// LastServerMessage is the most recent window/logMessage or
	// window/showMessage from this server, when any arrived.
	LastServerMessage string `json:"last_server_message,omitempty"`
}
