package lsp

import (
	"encoding/json"

	"github.com/octofhir/console-lsp/editor"

	"github.com/myleshyson/lsprotocol-go/protocol"
)

// Client-side protocol payloads. Document lifecycle notifications use the
// generated protocol types; the initialize capabilities and the
// position-based requests are built as plain objects because the console
// only ever sends the handful of fields below.

// initialize performs the handshake request. It is the only request
// allowed to bypass the readiness gate.
func (c *Client) initialize() (*protocol.InitializeResult, error) {
	params := map[string]any{
		"processId": nil,
		"clientInfo": map[string]any{
			"name": "octofhir-console",
		},
		"rootUri":      nil,
		"capabilities": clientCapabilities(),
	}

	var result protocol.InitializeResult
	if err := c.sendRequestDuringHandshake("initialize", params, &result, c.cfg.RequestTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// clientCapabilities declares what the console's editors can actually
// consume: full-document sync, snippet completions, markdown hover and
// whole-document formatting.
func clientCapabilities() map[string]any {
	return map[string]any{
		"textDocument": map[string]any{
			"synchronization": map[string]any{
				"dynamicRegistration": false,
				"didSave":             false,
			},
			"completion": map[string]any{
				"completionItem": map[string]any{
					"snippetSupport":          true,
					"documentationFormat":     []string{"markdown", "plaintext"},
					"insertReplaceSupport":    false,
					"commitCharactersSupport": false,
				},
				"contextSupport": true,
			},
			"hover": map[string]any{
				"contentFormat": []string{"markdown", "plaintext"},
			},
			"formatting": map[string]any{
				"dynamicRegistration": false,
			},
			"publishDiagnostics": map[string]any{
				"relatedInformation": false,
				"versionSupport":     false,
			},
		},
	}
}

func didOpenParams(buf editor.Buffer) protocol.DidOpenTextDocumentParams {
	return protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			Uri:        protocol.DocumentUri(buf.URI()),
			LanguageId: protocol.LanguageKind(buf.LanguageID()),
			Version:    buf.Version(),
			Text:       buf.Text(),
		},
	}
}

// didChangeParams carries the full current text: the console's buffers
// are single queries/expressions, so naive full-document sync is the
// simple, correctness-preserving choice over incremental diffs.
func didChangeParams(buf editor.Buffer) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{
			"uri":     buf.URI(),
			"version": buf.Version(),
		},
		"contentChanges": []map[string]any{
			{"text": buf.Text()},
		},
	}
}

func didCloseParams(uri string) protocol.DidCloseTextDocumentParams {
	return protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{
			Uri: protocol.DocumentUri(uri),
		},
	}
}

// Completion requests textDocument/completion at a position and returns
// the raw response for shape normalization by the adapter.
func (c *Client) Completion(uri string, pos editor.Position, triggerCharacter string) (json.RawMessage, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": pos.Line, "character": pos.Character},
	}
	if triggerCharacter != "" {
		params["context"] = map[string]any{
			"triggerKind":      2, // TriggerCharacter
			"triggerCharacter": triggerCharacter,
		}
	} else {
		params["context"] = map[string]any{
			"triggerKind": 1, // Invoked
		}
	}

	var raw json.RawMessage
	if err := c.SendRequest("textDocument/completion", params, &raw, 0); err != nil {
		return nil, err
	}
	return raw, nil
}

// Hover requests textDocument/hover at a position.
func (c *Client) Hover(uri string, pos editor.Position) (json.RawMessage, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": pos.Line, "character": pos.Character},
	}

	var raw json.RawMessage
	if err := c.SendRequest("textDocument/hover", params, &raw, 0); err != nil {
		return nil, err
	}
	return raw, nil
}

// Formatting requests textDocument/formatting. Extra formatter settings
// ride along as additional protocol-level options; nil values are dropped.
func (c *Client) Formatting(uri string, opts editor.FormattingOptions) ([]protocol.TextEdit, error) {
	options := map[string]any{
		"tabSize":      opts.TabSize,
		"insertSpaces": opts.InsertSpaces,
	}
	for k, v := range opts.Extra {
		if v == nil {
			continue
		}
		options[k] = v
	}
	for k, v := range c.cfg.FormatterOptions {
		if v == nil {
			continue
		}
		if _, ok := options[k]; !ok {
			options[k] = v
		}
	}

	params := map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"options":      options,
	}

	var result []protocol.TextEdit
	if err := c.SendRequest("textDocument/formatting", params, &result, 0); err != nil {
		return nil, err
	}
	return result, nil
}
