package lsp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/octofhir/console-lsp/editor"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateClosing
	StateReconnectWait
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateReconnectWait:
		return "reconnect-scheduled"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

var (
	ErrDisposed         = errors.New("lsp: client disposed")
	ErrConnectionClosed = errors.New("lsp: connection closed")
	ErrRequestTimeout   = errors.New("lsp: request timed out")
	ErrNotConnected     = errors.New("lsp: not connected")
)

const (
	// DefaultRequestTimeout bounds every request independently, measured
	// from send time.
	DefaultRequestTimeout = 15 * time.Second
	// Reconnect backoff doubles from the initial delay up to the cap.
	DefaultReconnectInitial = 1 * time.Second
	DefaultReconnectMax     = 30 * time.Second
	// DefaultDebounceInterval is how long a document stays quiet before a
	// full-text didChange goes out.
	DefaultDebounceInterval = 100 * time.Millisecond

	defaultDialTimeout = 10 * time.Second
)

// DiagnosticsOwner is the marker owner key for server diagnostics;
// markers under it are replaced atomically on every publishDiagnostics,
// never merged with other owners' markers.
const DiagnosticsOwner = "console-lsp"

// Config describes one language connection.
type Config struct {
	// URL is the language-specific WebSocket endpoint.
	URL string
	// Token, when set, is appended to the URL as an auth query parameter
	// (the SQL endpoint requires it).
	Token string
	// LanguageID is the language this connection serves ("sql", "fhirpath").
	LanguageID string
	// Editor, when non-nil, receives the capability provider registrations
	// on Start. A nil host leaves the client usable headlessly.
	Editor editor.Host

	RequestTimeout   time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	DebounceInterval time.Duration
	DialTimeout      time.Duration

	// FormatterOptions are forwarded as extra protocol-level formatting
	// options on every formatting request. Nil values are dropped.
	FormatterOptions map[string]any
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = DefaultReconnectInitial
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = DefaultReconnectMax
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = DefaultDebounceInterval
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	return c
}

// JSON-RPC 2.0 envelopes. One JSON object per WebSocket frame, no
// header framing.

type requestEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type notificationEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type responseEnvelope struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *responseError `json:"error,omitempty"`
}

type responseError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *responseError) Error() string {
	if e == nil || e.Message == "" {
		return "lsp: request failed"
	}
	return e.Message
}

// incomingMessage is the decoded union of everything the server can send:
// responses (id, result/error), requests (id, method) and notifications
// (method only).
type incomingMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

const (
	codeMethodNotFound = -32601
)
