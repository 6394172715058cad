package lsp

import (
	"encoding/json"
	"testing"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/lsp/lsptest"

	"github.com/stretchr/testify/require"
)

func TestFlattenHoverContents(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain string", raw: `"a simple hint"`, want: "a simple hint"},
		{name: "markup content", raw: `{"kind": "markdown", "value": "**name** HumanName"}`, want: "**name** HumanName"},
		{name: "marked string", raw: `{"language": "sql", "value": "SELECT id FROM patient"}`, want: "```sql\nSELECT id FROM patient\n```"},
		{name: "array", raw: `["first", {"language": "fhirpath", "value": "Patient.name"}]`, want: "first\n\n```fhirpath\nPatient.name\n```"},
		{name: "array skips empties", raw: `["", "only"]`, want: "only"},
		{name: "null", raw: `null`, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, flattenHoverContents(json.RawMessage(tc.raw)))
		})
	}
}

func TestTranslateHoverResponse(t *testing.T) {
	raw := json.RawMessage(`{
		"contents": {"kind": "markdown", "value": "HumanName"},
		"range": {"start": {"line": 0, "character": 8}, "end": {"line": 0, "character": 12}}
	}`)

	h := translateHoverResponse(raw)
	require.NotNil(t, h)
	require.Equal(t, "HumanName", h.Contents)
	require.NotNil(t, h.Range)
	require.Equal(t, uint32(8), h.Range.Start.Character)
	require.Equal(t, uint32(12), h.Range.End.Character)
}

func TestTranslateHoverEmptyCases(t *testing.T) {
	require.Nil(t, translateHoverResponse(json.RawMessage(`null`)))
	require.Nil(t, translateHoverResponse(nil))
	require.Nil(t, translateHoverResponse(json.RawMessage(`{"contents": ""}`)))
	require.Nil(t, translateHoverResponse(json.RawMessage(`{"contents": []}`)))
}

func TestHoverAdapterEndToEnd(t *testing.T) {
	srv := lsptest.NewServer(t)
	srv.Handle("textDocument/hover", func(params json.RawMessage) (any, error) {
		return map[string]any{
			"contents": map[string]any{"kind": "markdown", "value": "`name : HumanName[]`"},
		}, nil
	})

	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.fhirpath", "fhirpath", "Patient.name")
	adapter := &hoverAdapter{client: c}
	h := adapter.ProvideHover(buf, editor.Position{Line: 0, Character: 9})
	require.NotNil(t, h)
	require.Equal(t, "`name : HumanName[]`", h.Contents)
}

func TestHoverAdapterDegradesToNil(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.fhirpath", "fhirpath", "Patient.name")
	adapter := &hoverAdapter{client: c}
	require.Nil(t, adapter.ProvideHover(buf, editor.Position{Line: 0, Character: 3}))
}
