package lsp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/logger"
)

// Wire shapes for publishDiagnostics. Decoded locally because severity,
// code and source are all optional and the translation below wants plain
// values, not pointer-laden protocol structs.

type diagnosticWire struct {
	Range    rangeWire       `json:"range"`
	Severity int             `json:"severity,omitempty"`
	Code     json.RawMessage `json:"code,omitempty"`
	Source   string          `json:"source,omitempty"`
	Message  string          `json:"message"`
}

type rangeWire struct {
	Start positionWire `json:"start"`
	End   positionWire `json:"end"`
}

type positionWire struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// handlePublishDiagnostics translates server-pushed diagnostics into
// editor markers on the originating buffer. Diagnostics for documents
// that are no longer tracked (closed faster than the server could
// respond) are dropped silently; markers on a live buffer are replaced
// atomically, never merged.
func (c *Client) handlePublishDiagnostics(raw json.RawMessage) {
	var params struct {
		Uri         string           `json:"uri"`
		Diagnostics []diagnosticWire `json:"diagnostics"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		logger.Debug(fmt.Sprintf("lsp[%s]: bad publishDiagnostics params: %v", c.cfg.LanguageID, err))
		return
	}

	c.mu.Lock()
	doc := c.docs[params.Uri]
	c.mu.Unlock()

	if doc == nil || doc.buf.Disposed() {
		logger.Debug(fmt.Sprintf("lsp[%s]: diagnostics for untracked document %s dropped", c.cfg.LanguageID, params.Uri))
		return
	}

	markers := make([]editor.Marker, 0, len(params.Diagnostics))
	for _, d := range params.Diagnostics {
		markers = append(markers, translateDiagnostic(d))
	}
	doc.buf.SetMarkers(DiagnosticsOwner, markers)
}

// translateDiagnostic maps a 0-based LSP diagnostic to the editor's
// 1-based marker form.
func translateDiagnostic(d diagnosticWire) editor.Marker {
	return editor.Marker{
		StartLine:   d.Range.Start.Line + 1,
		StartColumn: d.Range.Start.Character + 1,
		EndLine:     d.Range.End.Line + 1,
		EndColumn:   d.Range.End.Character + 1,
		Severity:    markerSeverity(d.Severity),
		Message:     d.Message,
		Code:        codeString(d.Code),
		Source:      d.Source,
	}
}

func markerSeverity(severity int) editor.MarkerSeverity {
	switch severity {
	case 1:
		return editor.MarkerError
	case 2:
		return editor.MarkerWarning
	case 3:
		return editor.MarkerInfo
	case 4:
		return editor.MarkerHint
	default:
		return editor.MarkerInfo
	}
}

// codeString renders the optional diagnostic code, which the protocol
// allows to be either a number or a string.
func codeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
