package lsp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/logger"
)

// hoverAdapter translates editor hover invocations into
// textDocument/hover requests and flattens the protocol's hover-contents
// union into one markdown string. Failures degrade to no hover.
type hoverAdapter struct {
	client *Client
}

func (a *hoverAdapter) ProvideHover(buf editor.Buffer, pos editor.Position) *editor.Hover {
	raw, err := a.client.Hover(buf.URI(), pos)
	if err != nil {
		logger.Debug(fmt.Sprintf("lsp[%s]: hover failed: %v", a.client.cfg.LanguageID, err))
		return nil
	}
	return translateHoverResponse(raw)
}

func translateHoverResponse(raw json.RawMessage) *editor.Hover {
	if isNullResult(raw) {
		return nil
	}

	var resp struct {
		Contents json.RawMessage `json:"contents"`
		Range    *rangeWire      `json:"range,omitempty"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.Debug(fmt.Sprintf("lsp: unrecognized hover response shape: %v", err))
		return nil
	}

	contents := strings.TrimSpace(flattenHoverContents(resp.Contents))
	if contents == "" {
		return nil
	}

	h := &editor.Hover{Contents: contents}
	if resp.Range != nil {
		r := editorRange(*resp.Range)
		h.Range = &r
	}
	return h
}

// flattenHoverContents collapses the protocol's contents union
// (string | {language, value} | {kind, value} | an array of those)
// into a single markdown string. Language-tagged values become fenced
// code blocks.
func flattenHoverContents(raw json.RawMessage) string {
	if isNullResult(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, el := range arr {
			if part := flattenHoverContents(el); part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, "\n\n")
	}

	var obj struct {
		Language string `json:"language,omitempty"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Value == "" {
			return ""
		}
		if obj.Language != "" {
			return "```" + obj.Language + "\n" + obj.Value + "\n```"
		}
		return obj.Value
	}

	return ""
}
