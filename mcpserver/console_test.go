package mcpserver

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/octofhir/console-lsp/config"
	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/lsp/lsptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T, srv *lsptest.Server) *Console {
	t.Helper()

	cfg := &config.Config{
		Languages: map[string]config.LanguageConfig{
			"sql": {URL: srv.URL()},
		},
		ReconnectInitialMS: 10,
		ReconnectMaxMS:     50,
		DebounceMS:         10,
	}
	c := NewConsole(cfg)
	t.Cleanup(c.Close)
	return c
}

func TestConsoleOpenUpdateCloseRoundTrip(t *testing.T) {
	srv := lsptest.NewServer(t)
	console := newTestConsole(t, srv)

	uri, err := console.OpenDocument("sql", "scratch.sql", "select 1")
	require.NoError(t, err)
	assert.Equal(t, "inmemory://console/scratch.sql", uri)

	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	require.NoError(t, console.UpdateDocument(uri, "select 2"))
	srv.WaitForNotification(t, "textDocument/didChange", 1)

	require.NoError(t, console.CloseDocument(uri))
	srv.WaitForNotification(t, "textDocument/didClose", 1)

	err = console.UpdateDocument(uri, "select 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not open")
}

func TestConsoleRejectsDuplicateOpen(t *testing.T) {
	srv := lsptest.NewServer(t)
	console := newTestConsole(t, srv)

	_, err := console.OpenDocument("sql", "q.sql", "select 1")
	require.NoError(t, err)

	_, err = console.OpenDocument("sql", "q.sql", "select 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already open")
}

func TestConsoleRejectsUnknownLanguage(t *testing.T) {
	srv := lsptest.NewServer(t)
	console := newTestConsole(t, srv)

	_, err := console.OpenDocument("fhirpath", "q.fhirpath", "Patient.name")
	require.Error(t, err)
}

func TestConsoleDiagnosticsFromServer(t *testing.T) {
	srv := lsptest.NewServer(t)
	console := newTestConsole(t, srv)

	uri, err := console.OpenDocument("sql", "q.sql", "selct 1")
	require.NoError(t, err)
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	require.NoError(t, srv.PublishDiagnostics(uri, []map[string]any{
		{
			"range": map[string]any{
				"start": map[string]any{"line": 0, "character": 0},
				"end":   map[string]any{"line": 0, "character": 5},
			},
			"severity": 1,
			"message":  "syntax error",
			"source":   "sql-ls",
		},
	}))

	deadline := time.Now().Add(5 * time.Second)
	var markers []editor.Marker
	for time.Now().Before(deadline) {
		markers, err = console.Diagnostics(uri)
		require.NoError(t, err)
		if len(markers) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, markers, 1)
	assert.Equal(t, editor.MarkerError, markers[0].Severity)
	assert.Equal(t, uint32(1), markers[0].StartLine)
	assert.Equal(t, uint32(1), markers[0].StartColumn)
	assert.Equal(t, "syntax error", markers[0].Message)
}

func TestConsoleCompletionThroughProvider(t *testing.T) {
	srv := lsptest.NewServer(t)
	srv.Handle("textDocument/completion", func(params json.RawMessage) (any, error) {
		return []map[string]any{
			{"label": "select", "kind": 14},
		}, nil
	})
	console := newTestConsole(t, srv)

	uri, err := console.OpenDocument("sql", "q.sql", "sel")
	require.NoError(t, err)
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	list, err := console.Completion(uri, 0, 3, "")
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "select", list.Items[0].Label)
	assert.Equal(t, editor.KindKeyword, list.Items[0].Kind)
}

func TestConsoleStatusReportsDocuments(t *testing.T) {
	srv := lsptest.NewServer(t)
	console := newTestConsole(t, srv)

	uri, err := console.OpenDocument("sql", "q.sql", "select 1")
	require.NoError(t, err)
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	st := console.Status()
	require.Len(t, st.Languages, 1)
	assert.Equal(t, "sql", st.Languages[0].Language)
	assert.True(t, st.Languages[0].Connected)
	assert.Equal(t, []string{uri}, st.Languages[0].Documents)
}
