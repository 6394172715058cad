// Package lsptest provides an in-process fake language server for tests.
// It speaks JSON-RPC 2.0 over WebSocket with one JSON object per text
// frame, the same wire format the real console endpoints use.
package lsptest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
)

// Message is a recorded client-to-server request or notification.
type Message struct {
	Method string
	Params json.RawMessage
}

// HandlerFunc serves one client request. Returning a *jsonrpc2.Error
// sends an error response; any other error is wrapped as an internal
// error response.
type HandlerFunc func(params json.RawMessage) (any, error)

// Server is a fake language server bound to an httptest listener.
type Server struct {
	httpSrv  *httptest.Server
	upgrader websocket.Upgrader

	mu            sync.Mutex
	handlers      map[string]HandlerFunc
	initResult    any
	wsConns       []*websocket.Conn
	rpcConn       *jsonrpc2.Conn
	connCount     int
	lastToken     string
	notifications []Message
	requests      []Message
}

// NewServer starts a fake server. It is shut down automatically when the
// test finishes.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		handlers: map[string]HandlerFunc{},
		initResult: map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync":           1,
				"completionProvider":         map[string]any{"triggerCharacters": []string{"."}},
				"hoverProvider":              true,
				"documentFormattingProvider": true,
			},
		},
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	s.httpSrv = httptest.NewServer(http.HandlerFunc(s.serveWS))
	t.Cleanup(s.Close)

	return s
}

// URL returns the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http")
}

// Handle installs fn for a request or notification method. For
// notifications the return value is ignored.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// SetInitializeResult overrides the default initialize response.
func (s *Server) SetInitializeResult(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initResult = v
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	stream := jsonrpc2.NewBufferedStream(newWSStream(ws), jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, serverHandler{s})

	s.mu.Lock()
	s.connCount++
	s.wsConns = append(s.wsConns, ws)
	s.rpcConn = conn
	s.lastToken = r.URL.Query().Get("token")
	s.mu.Unlock()
}

// serverHandler implements jsonrpc2.Handler against the owning Server.
type serverHandler struct {
	s *Server
}

// Handle records the message synchronously so arrival order is
// observable, then serves requests on their own goroutine so a blocking
// handler cannot stall the read loop.
func (h serverHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	s := h.s
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	s.mu.Lock()
	msg := Message{Method: req.Method, Params: params}
	if req.Notif {
		s.notifications = append(s.notifications, msg)
	} else {
		s.requests = append(s.requests, msg)
	}
	fn := s.handlers[req.Method]
	initResult := s.initResult
	s.mu.Unlock()

	if req.Notif {
		if fn != nil {
			fn(params)
		}
		return
	}

	go h.respond(ctx, conn, req, params, fn, initResult)
}

func (h serverHandler) respond(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, params json.RawMessage, fn HandlerFunc, initResult any) {
	if fn == nil {
		switch req.Method {
		case "initialize":
			conn.Reply(ctx, req.ID, initResult)
		case "shutdown":
			conn.Reply(ctx, req.ID, nil)
		default:
			conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeMethodNotFound,
				Message: "method not found: " + req.Method,
			})
		}
		return
	}

	result, err := fn(params)
	if err != nil {
		rpcErr, ok := err.(*jsonrpc2.Error)
		if !ok {
			rpcErr = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
		}
		conn.ReplyWithError(ctx, req.ID, rpcErr)
		return
	}
	conn.Reply(ctx, req.ID, result)
}

// Notify pushes a server-to-client notification on the current connection.
func (s *Server) Notify(method string, params any) error {
	s.mu.Lock()
	conn := s.rpcConn
	s.mu.Unlock()
	if conn == nil {
		return io.ErrClosedPipe
	}
	return conn.Notify(context.Background(), method, params)
}

// Call issues a server-to-client request and waits for the reply.
func (s *Server) Call(method string, params, result any) error {
	s.mu.Lock()
	conn := s.rpcConn
	s.mu.Unlock()
	if conn == nil {
		return io.ErrClosedPipe
	}
	return conn.Call(context.Background(), method, params, result)
}

// ReplyRaw sends a response for an id the client never asked about, for
// exercising stray-response handling.
func (s *Server) ReplyRaw(id uint64, result any) error {
	s.mu.Lock()
	conn := s.rpcConn
	s.mu.Unlock()
	if conn == nil {
		return io.ErrClosedPipe
	}
	return conn.Reply(context.Background(), jsonrpc2.ID{Num: id}, result)
}

// PublishDiagnostics pushes a textDocument/publishDiagnostics notification.
func (s *Server) PublishDiagnostics(uri string, diagnostics []map[string]any) error {
	if diagnostics == nil {
		diagnostics = []map[string]any{}
	}
	return s.Notify("textDocument/publishDiagnostics", map[string]any{
		"uri":         uri,
		"diagnostics": diagnostics,
	})
}

// DropConnection closes the current WebSocket from the server side,
// simulating an abnormal disconnect.
func (s *Server) DropConnection() {
	s.mu.Lock()
	var ws *websocket.Conn
	if n := len(s.wsConns); n > 0 {
		ws = s.wsConns[n-1]
	}
	s.mu.Unlock()
	if ws != nil {
		ws.Close()
	}
}

// ConnCount reports how many WebSocket connections have been accepted.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connCount
}

// LastToken reports the token query parameter of the latest connection.
func (s *Server) LastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

// Notifications returns a snapshot of notifications received so far.
func (s *Server) Notifications() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// NotificationMethods returns just the methods, in arrival order.
func (s *Server) NotificationMethods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.notifications))
	for i, m := range s.notifications {
		out[i] = m.Method
	}
	return out
}

// Requests returns a snapshot of requests received so far.
func (s *Server) Requests() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.requests))
	copy(out, s.requests)
	return out
}

// WaitForNotification blocks until at least count notifications with the
// given method have arrived, and returns the last of them.
func (s *Server) WaitForNotification(t *testing.T, method string, count int) Message {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var matched []Message
		for _, m := range s.Notifications() {
			if m.Method == method {
				matched = append(matched, m)
			}
		}
		if len(matched) >= count {
			return matched[len(matched)-1]
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %q notifications, got %d", count, method, len(matched))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ResetRecorded clears recorded requests and notifications.
func (s *Server) ResetRecorded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
	s.requests = nil
}

// Close shuts the server down and closes all accepted connections.
func (s *Server) Close() {
	s.mu.Lock()
	conns := s.wsConns
	s.wsConns = nil
	s.mu.Unlock()
	for _, ws := range conns {
		ws.Close()
	}
	s.httpSrv.Close()
}

// wsStream adapts a WebSocket connection to io.ReadWriteCloser so it can
// feed a jsonrpc2 buffered stream. Frame boundaries align with JSON
// object boundaries, so a plain object codec reads cleanly.
type wsStream struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	readBuf []byte
	writeMu sync.Mutex
}

func newWSStream(conn *websocket.Conn) *wsStream {
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.readBuf) > 0 {
		n := copy(p, s.readBuf)
		s.readBuf = s.readBuf[n:]
		return n, nil
	}

	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	n := copy(p, msg)
	if n < len(msg) {
		s.readBuf = msg[n:]
	}
	return n, nil
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

var _ io.ReadWriteCloser = (*wsStream)(nil)
