package editor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBufferVersionAndListeners(t *testing.T) {
	buf := NewMemoryBuffer("q.sql", "sql", "select 1")
	require.Equal(t, "inmemory://console/q.sql", buf.URI())
	require.Equal(t, int32(1), buf.Version())

	fired := 0
	remove := buf.OnChange(func() { fired++ })

	buf.SetText("select 2")
	require.Equal(t, int32(2), buf.Version())
	require.Equal(t, "select 2", buf.Text())
	require.Equal(t, 1, fired)

	remove()
	buf.SetText("select 3")
	require.Equal(t, int32(3), buf.Version())
	require.Equal(t, 1, fired)
}

func TestMemoryBufferMarkersPerOwner(t *testing.T) {
	buf := NewMemoryBuffer("q.sql", "sql", "select 1")

	lspMarkers := []Marker{{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 6, Severity: MarkerError, Message: "typo"}}
	lintMarkers := []Marker{{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 2, Severity: MarkerHint, Message: "style"}}

	buf.SetMarkers("lsp", lspMarkers)
	buf.SetMarkers("lint", lintMarkers)
	require.Len(t, buf.Markers("lsp"), 1)
	require.Len(t, buf.Markers("lint"), 1)

	// Replacing one owner's markers leaves the other untouched.
	buf.SetMarkers("lsp", nil)
	require.Empty(t, buf.Markers("lsp"))
	require.Len(t, buf.Markers("lint"), 1)
}

func TestDisposedBufferIgnoresMutations(t *testing.T) {
	buf := NewMemoryBuffer("q.sql", "sql", "select 1")
	fired := 0
	buf.OnChange(func() { fired++ })

	buf.Dispose()
	require.True(t, buf.Disposed())

	buf.SetText("select 2")
	buf.SetMarkers("lsp", []Marker{{Message: "late"}})

	require.Equal(t, "select 1", buf.Text())
	require.Equal(t, 0, fired)
	require.Empty(t, buf.Markers("lsp"))
}

func TestWordRangeAt(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		pos   Position
		start uint32
		end   uint32
	}{
		{name: "middle of word", text: "Patient.name", pos: Position{Line: 0, Character: 10}, start: 8, end: 12},
		{name: "start of word", text: "select id from t", pos: Position{Line: 0, Character: 7}, start: 7, end: 9},
		{name: "after dot", text: "Patient.", pos: Position{Line: 0, Character: 8}, start: 8, end: 8},
		{name: "underscore identifier", text: "my_table x", pos: Position{Line: 0, Character: 4}, start: 0, end: 8},
		{name: "second line", text: "select *\nfrom patient", pos: Position{Line: 1, Character: 6}, start: 5, end: 12},
		{name: "past end of line", text: "abc", pos: Position{Line: 0, Character: 99}, start: 0, end: 3},
		{name: "past last line", text: "abc", pos: Position{Line: 5, Character: 0}, start: 0, end: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := WordRangeAt(tc.text, tc.pos)
			require.Equal(t, tc.start, r.Start.Character)
			require.Equal(t, tc.end, r.End.Character)
			require.Equal(t, tc.pos.Line, r.Start.Line)
		})
	}
}
