package lsp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/lsp/lsptest"

	"github.com/stretchr/testify/require"
)

type didChangeWire struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int32  `json:"version"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

func collectDidChanges(t *testing.T, srv *lsptest.Server) []didChangeWire {
	t.Helper()

	var out []didChangeWire
	for _, n := range srv.Notifications() {
		if n.Method != "textDocument/didChange" {
			continue
		}
		var w didChangeWire
		require.NoError(t, json.Unmarshal(n.Params, &w))
		out = append(out, w)
	}
	return out
}

func TestBindBufferSendsDidOpen(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("obs.fhirpath", "fhirpath", "Patient.name")
	unbind, err := c.BindBuffer(buf)
	require.NoError(t, err)
	defer unbind()

	opened := srv.WaitForNotification(t, "textDocument/didOpen", 1)
	var params struct {
		TextDocument struct {
			URI        string `json:"uri"`
			LanguageID string `json:"languageId"`
			Version    int32  `json:"version"`
			Text       string `json:"text"`
		} `json:"textDocument"`
	}
	require.NoError(t, json.Unmarshal(opened.Params, &params))
	require.Equal(t, buf.URI(), params.TextDocument.URI)
	require.Equal(t, "fhirpath", params.TextDocument.LanguageID)
	require.Equal(t, int32(1), params.TextDocument.Version)
	require.Equal(t, "Patient.name", params.TextDocument.Text)
}

func TestRapidEditsCoalesceIntoOneDidChange(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.DebounceInterval = 40 * time.Millisecond
	})
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.sql", "sql", "sel")
	unbind, err := c.BindBuffer(buf)
	require.NoError(t, err)
	defer unbind()
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	// Three edits inside one debounce window.
	buf.SetText("sele")
	buf.SetText("selec")
	buf.SetText("select * from patient")

	srv.WaitForNotification(t, "textDocument/didChange", 1)
	time.Sleep(80 * time.Millisecond)

	changes := collectDidChanges(t, srv)
	require.Len(t, changes, 1)
	require.Equal(t, "select * from patient", changes[0].ContentChanges[0].Text)
	require.Equal(t, buf.Version(), changes[0].TextDocument.Version)
}

func TestSeparatedEditsEachProduceDidChange(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.DebounceInterval = 10 * time.Millisecond
	})
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.sql", "sql", "select 1")
	unbind, err := c.BindBuffer(buf)
	require.NoError(t, err)
	defer unbind()
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	buf.SetText("select 2")
	srv.WaitForNotification(t, "textDocument/didChange", 1)
	buf.SetText("select 3")
	srv.WaitForNotification(t, "textDocument/didChange", 2)

	changes := collectDidChanges(t, srv)
	require.Len(t, changes, 2)
	require.Equal(t, "select 2", changes[0].ContentChanges[0].Text)
	require.Equal(t, "select 3", changes[1].ContentChanges[0].Text)
}

func TestUnbindSendsDidCloseAndStopsTracking(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	buf := editor.NewMemoryBuffer("q.sql", "sql", "select 1")
	unbind, err := c.BindBuffer(buf)
	require.NoError(t, err)
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	unbind()
	closed := srv.WaitForNotification(t, "textDocument/didClose", 1)
	var params struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	require.NoError(t, json.Unmarshal(closed.Params, &params))
	require.Equal(t, buf.URI(), params.TextDocument.URI)
	require.Empty(t, c.TrackedDocuments())

	// Unbind is safe to call again and edits after unbind go nowhere.
	unbind()
	buf.SetText("select 2")
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, collectDidChanges(t, srv))
}

func TestRebindingURIReplacesPreviousBinding(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	first := editor.NewMemoryBuffer("q.sql", "sql", "select 1")
	second := editor.NewMemoryBuffer("q.sql", "sql", "select 2")

	_, err := c.BindBuffer(first)
	require.NoError(t, err)
	srv.WaitForNotification(t, "textDocument/didOpen", 1)

	unbind, err := c.BindBuffer(second)
	require.NoError(t, err)
	defer unbind()

	// The old binding is closed, the new one opened; only one document is
	// tracked.
	srv.WaitForNotification(t, "textDocument/didClose", 1)
	srv.WaitForNotification(t, "textDocument/didOpen", 2)
	require.Equal(t, []string{second.URI()}, c.TrackedDocuments())
}

func TestBindBufferWithoutURIFails(t *testing.T) {
	srv := lsptest.NewServer(t)
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	_, err := c.BindBuffer(editor.NewMemoryBuffer("", "sql", ""))
	require.Error(t, err)
}
