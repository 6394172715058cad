package lsp

import (
	"encoding/json"
	"fmt"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/logger"
)

// completionAdapter translates editor completion invocations into
// textDocument/completion requests and normalizes the response. Any
// failure (timeout, protocol error, transport loss) degrades to an
// empty list so the editor never blocks or crashes on LSP trouble.
type completionAdapter struct {
	client *Client
}

func (a *completionAdapter) ProvideCompletion(buf editor.Buffer, pos editor.Position, triggerCharacter string) editor.CompletionList {
	raw, err := a.client.Completion(buf.URI(), pos, triggerCharacter)
	if err != nil {
		logger.Debug(fmt.Sprintf("lsp[%s]: completion failed: %v", a.client.cfg.LanguageID, err))
		return editor.CompletionList{}
	}

	fallback := editor.WordRangeAt(buf.Text(), pos)
	return translateCompletionResponse(raw, fallback)
}

// Wire shape of one completion item; the fields the console's editors
// actually consume.
type completionItemWire struct {
	Label            string          `json:"label"`
	Kind             int             `json:"kind,omitempty"`
	Detail           string          `json:"detail,omitempty"`
	Documentation    json.RawMessage `json:"documentation,omitempty"`
	InsertText       string          `json:"insertText,omitempty"`
	InsertTextFormat int             `json:"insertTextFormat,omitempty"`
	TextEdit         json.RawMessage `json:"textEdit,omitempty"`
}

// translateCompletionResponse normalizes both response shapes the
// protocol allows, a bare item array or {isIncomplete, items}, into the
// editor's list form. Null and unparseable responses yield an empty list.
func translateCompletionResponse(raw json.RawMessage, fallback editor.Range) editor.CompletionList {
	if isNullResult(raw) {
		return editor.CompletionList{}
	}

	var items []completionItemWire
	incomplete := false

	if err := json.Unmarshal(raw, &items); err != nil {
		var list struct {
			IsIncomplete bool                 `json:"isIncomplete"`
			Items        []completionItemWire `json:"items"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			logger.Debug(fmt.Sprintf("lsp: unrecognized completion response shape: %v", err))
			return editor.CompletionList{}
		}
		items = list.Items
		incomplete = list.IsIncomplete
	}

	out := editor.CompletionList{Incomplete: incomplete, Items: make([]editor.CompletionItem, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, translateCompletionItem(it, fallback))
	}
	return out
}

func translateCompletionItem(it completionItemWire, fallback editor.Range) editor.CompletionItem {
	insert := it.InsertText
	if insert == "" {
		insert = it.Label
	}

	item := editor.CompletionItem{
		Label:         it.Label,
		Kind:          completionKind(it.Kind),
		Detail:        it.Detail,
		Documentation: documentationString(it.Documentation),
		InsertText:    insert,
		// insertTextFormat 2 is the protocol's snippet format.
		IsSnippet: it.InsertTextFormat == 2,
		Range:     fallback,
	}

	// A server-supplied edit wins over the client-computed word range.
	if rng, text, ok := decodeTextEdit(it.TextEdit); ok {
		item.Range = rng
		if text != "" {
			item.InsertText = text
		}
	}

	return item
}

// decodeTextEdit accepts both the plain TextEdit shape {range, newText}
// and the InsertReplaceEdit shape {insert, replace, newText}, preferring
// the replace range of the latter.
func decodeTextEdit(raw json.RawMessage) (editor.Range, string, bool) {
	if len(raw) == 0 || isNullResult(raw) {
		return editor.Range{}, "", false
	}

	var edit struct {
		Range   *rangeWire `json:"range"`
		Insert  *rangeWire `json:"insert"`
		Replace *rangeWire `json:"replace"`
		NewText string     `json:"newText"`
	}
	if err := json.Unmarshal(raw, &edit); err != nil {
		return editor.Range{}, "", false
	}

	switch {
	case edit.Range != nil:
		return editorRange(*edit.Range), edit.NewText, true
	case edit.Replace != nil:
		return editorRange(*edit.Replace), edit.NewText, true
	case edit.Insert != nil:
		return editorRange(*edit.Insert), edit.NewText, true
	default:
		return editor.Range{}, "", false
	}
}

func editorRange(r rangeWire) editor.Range {
	return editor.Range{
		Start: editor.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   editor.Position{Line: r.End.Line, Character: r.End.Character},
	}
}

// documentationString accepts both plain-string docs and MarkupContent.
func documentationString(raw json.RawMessage) string {
	if len(raw) == 0 || isNullResult(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var markup struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &markup); err == nil {
		return markup.Value
	}
	return ""
}

// completionKinds maps protocol completion-item kinds onto the editor's
// enum. Unmapped kinds fall back to plain text.
var completionKinds = map[int]editor.CompletionKind{
	1:  editor.KindText,
	2:  editor.KindMethod,
	3:  editor.KindFunction,
	4:  editor.KindConstructor,
	5:  editor.KindField,
	6:  editor.KindVariable,
	7:  editor.KindClass,
	8:  editor.KindInterface,
	9:  editor.KindModule,
	10: editor.KindProperty,
	11: editor.KindUnit,
	12: editor.KindValue,
	13: editor.KindEnum,
	14: editor.KindKeyword,
	15: editor.KindSnippet,
	16: editor.KindColor,
	17: editor.KindFile,
	18: editor.KindReference,
	19: editor.KindFolder,
	20: editor.KindEnumMember,
	21: editor.KindConstant,
	22: editor.KindStruct,
	23: editor.KindEvent,
	24: editor.KindOperator,
	25: editor.KindTypeParameter,
}

func completionKind(kind int) editor.CompletionKind {
	if k, ok := completionKinds[kind]; ok {
		return k
	}
	return editor.KindText
}

func isNullResult(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
