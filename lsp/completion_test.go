package lsp

import (
	"encoding/json"
	"testing"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/lsp/lsptest"

	"github.com/stretchr/testify/require"
)

func TestTranslateCompletionBareArray(t *testing.T) {
	raw := json.RawMessage(`[
		{"label": "name", "kind": 5, "detail": "HumanName"},
		{"label": "where", "kind": 3, "insertText": "where($1)", "insertTextFormat": 2}
	]`)
	fallback := editor.Range{
		Start: editor.Position{Line: 0, Character: 8},
		End:   editor.Position{Line: 0, Character: 11},
	}

	list := translateCompletionResponse(raw, fallback)
	require.False(t, list.Incomplete)
	require.Len(t, list.Items, 2)

	require.Equal(t, "name", list.Items[0].Label)
	require.Equal(t, editor.KindField, list.Items[0].Kind)
	require.Equal(t, "HumanName", list.Items[0].Detail)
	require.Equal(t, "name", list.Items[0].InsertText)
	require.False(t, list.Items[0].IsSnippet)
	require.Equal(t, fallback, list.Items[0].Range)

	require.Equal(t, "where($1)", list.Items[1].InsertText)
	require.True(t, list.Items[1].IsSnippet)
	require.Equal(t, editor.KindFunction, list.Items[1].Kind)
}

func TestTranslateCompletionListObject(t *testing.T) {
	raw := json.RawMessage(`{"isIncomplete": true, "items": [{"label": "SELECT", "kind": 14}]}`)

	list := translateCompletionResponse(raw, editor.Range{})
	require.True(t, list.Incomplete)
	require.Len(t, list.Items, 1)
	require.Equal(t, "SELECT", list.Items[0].Label)
	require.Equal(t, editor.KindKeyword, list.Items[0].Kind)
}

func TestTranslateCompletionNullAndGarbage(t *testing.T) {
	require.Empty(t, translateCompletionResponse(json.RawMessage(`null`), editor.Range{}).Items)
	require.Empty(t, translateCompletionResponse(nil, editor.Range{}).Items)
	require.Empty(t, translateCompletionResponse(json.RawMessage(`"what"`), editor.Range{}).Items)
}

func TestServerTextEditOverridesWordRange(t *testing.T) {
	raw := json.RawMessage(`[{
		"label": "Patient.name",
		"textEdit": {
			"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 11}},
			"newText": "Patient.name.given"
		}
	}]`)
	fallback := editor.Range{
		Start: editor.Position{Line: 0, Character: 8},
		End:   editor.Position{Line: 0, Character: 11},
	}

	list := translateCompletionResponse(raw, fallback)
	require.Len(t, list.Items, 1)
	require.Equal(t, "Patient.name.given", list.Items[0].InsertText)
	require.Equal(t, editor.Range{
		Start: editor.Position{Line: 0, Character: 0},
		End:   editor.Position{Line: 0, Character: 11},
	}, list.Items[0].Range)
}

func TestInsertReplaceEditPrefersReplaceRange(t *testing.T) {
	raw := json.RawMessage(`{
		"insert": {"start": {"line": 1, "character": 2}, "end": {"line": 1, "character": 4}},
		"replace": {"start": {"line": 1, "character": 2}, "end": {"line": 1, "character": 8}},
		"newText": "given"
	}`)

	rng, text, ok := decodeTextEdit(raw)
	require.True(t, ok)
	require.Equal(t, "given", text)
	require.Equal(t, uint32(8), rng.End.Character)
}

func TestCompletionDocumentationShapes(t *testing.T) {
	require.Equal(t, "plain docs", documentationString(json.RawMessage(`"plain docs"`)))
	require.Equal(t, "markdown docs", documentationString(json.RawMessage(`{"kind": "markdown", "value": "markdown docs"}`)))
	require.Equal(t, "", documentationString(nil))
	require.Equal(t, "", documentationString(json.RawMessage(`null`)))
}

func TestUnmappedCompletionKindFallsBackToText(t *testing.T) {
	require.Equal(t, editor.KindText, completionKind(0))
	require.Equal(t, editor.KindText, completionKind(26))
	require.Equal(t, editor.KindSnippet, completionKind(15))
	require.Equal(t, editor.KindTypeParameter, completionKind(25))
}

func TestCompletionAdapterEndToEnd(t *testing.T) {
	srv := lsptest.NewServer(t)
	srv.Handle("textDocument/completion", func(params json.RawMessage) (any, error) {
		var p struct {
			Context struct {
				TriggerKind      int    `json:"triggerKind"`
				TriggerCharacter string `json:"triggerCharacter"`
			} `json:"context"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		require.Equal(t, 2, p.Context.TriggerKind)
		require.Equal(t, ".", p.Context.TriggerCharacter)

		return map[string]any{
			"isIncomplete": false,
			"items": []map[string]any{
				{"label": "name", "kind": 5},
				{"label": "birthDate", "kind": 5},
			},
		}, nil
	})

	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.fhirpath", "fhirpath", "Patient.")
	unbind, err := c.BindBuffer(buf)
	require.NoError(t, err)
	defer unbind()

	adapter := &completionAdapter{client: c}
	list := adapter.ProvideCompletion(buf, editor.Position{Line: 0, Character: 8}, ".")
	require.Len(t, list.Items, 2)
	require.Equal(t, "name", list.Items[0].Label)
}

func TestCompletionAdapterDegradesToEmptyOnError(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.fhirpath", "fhirpath", "Patient.")

	// No completion handler installed: the server answers method-not-found
	// and the adapter degrades to an empty list.
	adapter := &completionAdapter{client: c}
	list := adapter.ProvideCompletion(buf, editor.Position{Line: 0, Character: 8}, "")
	require.Empty(t, list.Items)
}
