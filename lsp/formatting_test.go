package lsp

import (
	"encoding/json"
	"testing"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/lsp/lsptest"

	"github.com/stretchr/testify/require"
)

func TestFormattingSendsMergedOptions(t *testing.T) {
	srv := lsptest.NewServer(t)
	var gotOptions map[string]any
	srv.Handle("textDocument/formatting", func(params json.RawMessage) (any, error) {
		var p struct {
			Options map[string]any `json:"options"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		gotOptions = p.Options

		return []map[string]any{
			{
				"range": map[string]any{
					"start": map[string]any{"line": 0, "character": 0},
					"end":   map[string]any{"line": 0, "character": 8},
				},
				"newText": "SELECT 1",
			},
		}, nil
	})

	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.LanguageID = "sql"
		cfg.FormatterOptions = map[string]any{
			"keywordCase": "upper",
			"dialect":     "postgresql",
			"unused":      nil,
		}
	})
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.sql", "sql", "select 1")
	adapter := &formattingAdapter{client: c}
	edits := adapter.ProvideFormatting(buf, editor.FormattingOptions{
		TabSize:      2,
		InsertSpaces: true,
		Extra:        map[string]any{"keywordCase": "lower"},
	})

	require.Len(t, edits, 1)
	require.Equal(t, "SELECT 1", edits[0].NewText)
	require.Equal(t, editor.Position{Line: 0, Character: 8}, edits[0].Range.End)

	require.Equal(t, float64(2), gotOptions["tabSize"])
	require.Equal(t, true, gotOptions["insertSpaces"])
	// Per-call extras win over the configured side channel; nils are dropped.
	require.Equal(t, "lower", gotOptions["keywordCase"])
	require.Equal(t, "postgresql", gotOptions["dialect"])
	_, hasUnused := gotOptions["unused"]
	require.False(t, hasUnused)
}

func TestFormattingAdapterDegradesToNil(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.sql", "sql", "select 1")
	adapter := &formattingAdapter{client: c}
	require.Nil(t, adapter.ProvideFormatting(buf, editor.FormattingOptions{TabSize: 4}))
}
