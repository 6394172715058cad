package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferURI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"scratch buffer", "sql-console", "inmemory://console/sql-console"},
		{"scratch with spaces", "my query", "inmemory://console/my%20query"},
		{"existing file uri", "file:///tmp/query.sql", "file:///tmp/query.sql"},
		{"existing inmemory uri", "inmemory://console/fhirpath", "inmemory://console/fhirpath"},
		{"other scheme", "https://example.com/x", "https://example.com/x"},
		{"absolute path", "/tmp/query.sql", "file:///tmp/query.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BufferURI(tt.input))
		})
	}
}

func TestBufferURI_Stable(t *testing.T) {
	// Same input must produce byte-identical URIs: servers compare opened
	// document URIs by string equality.
	a := BufferURI("fhirpath-console")
	b := BufferURI("fhirpath-console")
	assert.Equal(t, a, b)
}

func TestFileURIRoundTrip(t *testing.T) {
	uri, err := PathToFileURI("/var/lib/console/query.sql")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	p, err := FileURIToPath(uri)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/console/query.sql", p)
}

func TestFileURIToPath_Escapes(t *testing.T) {
	p, err := FileURIToPath("file:///tmp/with%20space.sql")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/with space.sql", p)
}

func TestFileURIToPath_Errors(t *testing.T) {
	_, err := FileURIToPath("https://example.com/x")
	assert.Error(t, err)
}

func TestNormalizeURI(t *testing.T) {
	assert.Equal(t, "file:///a/b.sql", NormalizeURI("file:///a/b.sql"))
	assert.Equal(t, "inmemory://console/scratch", NormalizeURI("scratch"))
	assert.Equal(t, "", NormalizeURI("  "))
}

func TestIsInMemoryURI(t *testing.T) {
	assert.True(t, IsInMemoryURI("inmemory://console/sql"))
	assert.False(t, IsInMemoryURI("file:///tmp/x.sql"))
}
