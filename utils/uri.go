package utils

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// InMemoryScheme is the scheme used for unsaved console buffers (the SQL
// console, FHIRPath console and bot editor all edit buffers that never
// touch disk).
const InMemoryScheme = "inmemory"

// BufferURI computes the canonical URI key for an editor buffer.
//
// Absolute paths become file URIs; anything already carrying a scheme is
// returned as-is; bare names (console scratch buffers) get the inmemory
// scheme. Language servers compare opened-document URIs by string
// equality, so the same input must always map to the same output.
func BufferURI(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}

	if strings.Contains(name, "://") {
		return name
	}

	if filepath.IsAbs(name) {
		if u, err := PathToFileURI(name); err == nil {
			return u
		}
		return "file://" + filepath.ToSlash(name)
	}

	return InMemoryScheme + "://console/" + url.PathEscape(name)
}

// NormalizeURI normalizes input into a valid URI.
//
// Already-schemed URIs are returned untouched. Some language servers are
// sensitive to URI string equality for opened documents, so file URIs are
// never re-encoded here.
func NormalizeURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return uri
	}

	if strings.Contains(uri, "://") || strings.HasPrefix(uri, "file:") {
		return uri
	}

	return BufferURI(uri)
}

// FileURIToPath converts a file:// URI into a local OS path (decoding % escapes).
func FileURIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file uri: %s", u.Scheme)
	}

	p, err := url.PathUnescape(u.Path)
	if err != nil {
		return "", fmt.Errorf("invalid uri path escape: %w", err)
	}

	return filepath.FromSlash(p), nil
}

// PathToFileURI converts a local OS path into a file:// URI.
func PathToFileURI(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err == nil {
		path = absPath
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String(), nil
}

// IsInMemoryURI reports whether the URI refers to an unsaved console buffer.
func IsInMemoryURI(uri string) bool {
	return strings.HasPrefix(uri, InMemoryScheme+"://")
}
