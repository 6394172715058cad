package lsp

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/octofhir/console-lsp/logger"

	"github.com/gorilla/websocket"
	"github.com/myleshyson/lsprotocol-go/protocol"
)

// Client owns a single WebSocket connection to one language server and
// bridges the editor's request/response world onto it: id-correlated
// JSON-RPC calls, queued notifications, tracked documents and
// diagnostics-to-marker translation.
//
// State transitions: disconnected -> connecting -> handshaking -> ready,
// back to disconnected on socket closure with an exponential-backoff
// reconnect, and into the absorbing disposed state from anywhere.
type Client struct {
	cfg Config

	mu      sync.Mutex
	state   State
	ws      *websocket.Conn
	writeMu sync.Mutex

	// Correlator state: monotonically increasing ids, pre-incremented so
	// the first request gets id 1. An id is never reused while pending.
	nextID  int64
	pending map[int64]*pendingRequest

	// Outgoing notifications buffered until the handshake completes.
	queue []queuedNotification

	docs     map[string]*trackedDocument
	docOrder []string

	// readyCh is closed when the connection reaches ready and replaced
	// with a fresh channel on every disconnect.
	readyCh chan struct{}
	// done is closed exactly once, on dispose.
	done     chan struct{}
	disposed bool

	reconnectTimer *time.Timer
	reconnectDelay time.Duration

	registered bool
	unregister []func()

	serverCapabilities protocol.ServerCapabilities
	messages           *ServerMessageLog
}

type queuedNotification struct {
	method string
	params any
}

// NewClient creates a client for one language endpoint. No connection is
// made until Start.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:            cfg.withDefaults(),
		state:          StateDisconnected,
		pending:        make(map[int64]*pendingRequest),
		docs:           make(map[string]*trackedDocument),
		readyCh:        make(chan struct{}),
		done:           make(chan struct{}),
		reconnectDelay: cfg.withDefaults().ReconnectInitial,
		messages:       NewServerMessageLog(),
	}
}

// LanguageID returns the language this client serves.
func (c *Client) LanguageID() string {
	return c.cfg.LanguageID
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServerCapabilities returns the capabilities announced by the server in
// the last successful handshake.
func (c *Client) ServerCapabilities() protocol.ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCapabilities
}

// Messages exposes the window/logMessage, window/showMessage history.
func (c *Client) Messages() *ServerMessageLog {
	return c.messages
}

// Start registers the capability providers with the editor host (once)
// and connects. It returns once the connection reaches ready, or with the
// dial/handshake error. A failed start still leaves the backoff reconnect
// loop running; Dispose stops it.
func (c *Client) Start() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.registerProvidersLocked()
	c.mu.Unlock()

	return c.connect()
}

// registerProvidersLocked wires the completion/hover/formatting adapters
// into the editor host. Idempotent: a second Start is a no-op here.
func (c *Client) registerProvidersLocked() {
	if c.registered || c.cfg.Editor == nil {
		return
	}
	c.registered = true
	lang := c.cfg.LanguageID
	c.unregister = append(c.unregister,
		c.cfg.Editor.RegisterCompletionProvider(lang, &completionAdapter{client: c}),
		c.cfg.Editor.RegisterHoverProvider(lang, &hoverAdapter{client: c}),
		c.cfg.Editor.RegisterFormattingProvider(lang, &formattingAdapter{client: c}),
	)
}

func (c *Client) endpointURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint url %q: %w", c.cfg.URL, err)
	}
	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// connect dials, runs the initialize handshake and promotes the client to
// ready. Any failure schedules a backoff reconnect before returning.
func (c *Client) connect() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.state == StateReady || c.state == StateHandshaking || c.state == StateConnecting {
		ready := c.readyCh
		c.mu.Unlock()
		// Another goroutine is already connecting; wait with it.
		select {
		case <-ready:
			return nil
		case <-c.done:
			return ErrDisposed
		}
	}
	c.state = StateConnecting
	c.mu.Unlock()

	wsURL, err := c.endpointURL()
	if err != nil {
		c.failConnect(err)
		return err
	}

	logger.Info(fmt.Sprintf("lsp[%s]: connecting to %s", c.cfg.LanguageID, c.cfg.URL))

	ws, err := dialWebSocket(wsURL, c.cfg.DialTimeout)
	if err != nil {
		logger.Warn(fmt.Sprintf("lsp[%s]: connection failed: %v", c.cfg.LanguageID, err))
		c.failConnect(err)
		return fmt.Errorf("failed to connect to %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		ws.Close()
		return ErrDisposed
	}
	c.ws = ws
	c.state = StateHandshaking
	c.mu.Unlock()

	go c.readPump(ws)

	result, err := c.initialize()
	if err != nil {
		logger.Warn(fmt.Sprintf("lsp[%s]: handshake failed: %v", c.cfg.LanguageID, err))
		// Closing the socket makes the read pump exit, which drives the
		// usual close handling (and the reconnect schedule).
		ws.Close()
		return fmt.Errorf("initialize handshake failed: %w", err)
	}

	c.completeHandshake(ws, result)
	return nil
}

// failConnect records a dial failure and schedules the next attempt.
func (c *Client) failConnect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.state = StateDisconnected
	c.scheduleReconnectLocked()
}

// completeHandshake sends initialized, flushes the notification queue in
// FIFO order and replays didOpen for every tracked document in
// registration order, then marks the connection ready. The whole sequence
// holds the state lock so no concurrently submitted notification can
// interleave with the replay.
func (c *Client) completeHandshake(ws *websocket.Conn, result *protocol.InitializeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.ws != ws || c.state != StateHandshaking {
		// The socket dropped while the initialize response was in flight.
		return
	}

	c.serverCapabilities = result.Capabilities

	c.writeLocked(notificationEnvelope{JSONRPC: "2.0", Method: "initialized", Params: struct{}{}})
	c.flushNotificationQueueLocked()
	c.replayOpenDocumentsLocked()

	c.state = StateReady
	c.reconnectDelay = c.cfg.ReconnectInitial
	close(c.readyCh)

	logger.Info(fmt.Sprintf("lsp[%s]: ready", c.cfg.LanguageID))
}

// replayOpenDocumentsLocked re-sends didOpen for every tracked document,
// in the order the documents were bound. The server's view of open
// documents is lost across a reconnect; didOpen carries the full current
// text so this restores it completely.
func (c *Client) replayOpenDocumentsLocked() {
	for _, uri := range c.docOrder {
		doc, ok := c.docs[uri]
		if !ok {
			continue
		}
		c.writeLocked(notificationEnvelope{
			JSONRPC: "2.0",
			Method:  "textDocument/didOpen",
			Params:  didOpenParams(doc.buf),
		})
	}
}

// readPump reads frames until the socket dies. Binary frames carry UTF-8
// JSON like text frames; both decode the same way.
func (c *Client) readPump(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.handleClose(ws, err)
			return
		}
		c.handleMessage(data)
	}
}

// handleClose is the single recovery point: it rejects everything pending,
// drops the queued notifications (didOpen replay on reconnect restores
// server-side state) and schedules the next attempt.
func (c *Client) handleClose(ws *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.ws != ws {
		// A stale pump from a previous socket; the close was already handled.
		c.mu.Unlock()
		return
	}
	c.ws = nil
	wasReady := c.state == StateReady
	c.state = StateDisconnected

	rejected := c.takePendingLocked()
	c.queue = nil

	if wasReady {
		c.readyCh = make(chan struct{})
	}

	if !c.disposed {
		logger.Warn(fmt.Sprintf("lsp[%s]: connection closed: %v", c.cfg.LanguageID, cause))
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	rejectAll(rejected, ErrConnectionClosed)
}

// scheduleReconnectLocked arms the backoff timer: delays double from the
// initial value up to the cap.
func (c *Client) scheduleReconnectLocked() {
	if c.disposed {
		return
	}
	delay := c.reconnectDelay
	c.reconnectDelay *= 2
	if c.reconnectDelay > c.cfg.ReconnectMax {
		c.reconnectDelay = c.cfg.ReconnectMax
	}
	c.state = StateReconnectWait

	logger.Info(fmt.Sprintf("lsp[%s]: reconnecting in %s", c.cfg.LanguageID, delay))

	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.disposed || c.state != StateReconnectWait {
			c.mu.Unlock()
			return
		}
		c.state = StateDisconnected
		c.mu.Unlock()

		if err := c.connect(); err != nil {
			logger.Debug(fmt.Sprintf("lsp[%s]: reconnect attempt failed: %v", c.cfg.LanguageID, err))
		}
	})
}

// waitUntilReady blocks until the connection is ready. Disposal is the
// only cancellation: callers wake with ErrDisposed.
func (c *Client) waitUntilReady() error {
	for {
		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			return ErrDisposed
		}
		if c.state == StateReady {
			c.mu.Unlock()
			return nil
		}
		ready := c.readyCh
		c.mu.Unlock()

		select {
		case <-ready:
		case <-c.done:
			return ErrDisposed
		}
	}
}

// Dispose tears the client down: no further reconnects, provider
// registrations removed, document listeners disposed, pending requests
// rejected, socket closed. Idempotent.
func (c *Client) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.state = StateDisposed

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	ws := c.ws
	c.ws = nil
	rejected := c.takePendingLocked()
	c.queue = nil

	docs := make([]*trackedDocument, 0, len(c.docs))
	for _, d := range c.docs {
		docs = append(docs, d)
	}
	c.docs = make(map[string]*trackedDocument)
	c.docOrder = nil

	unreg := c.unregister
	c.unregister = nil

	close(c.done)
	c.mu.Unlock()

	for _, d := range docs {
		d.silence()
	}
	for _, fn := range unreg {
		fn()
	}
	rejectAll(rejected, ErrDisposed)
	if ws != nil {
		ws.Close()
	}

	logger.Info(fmt.Sprintf("lsp[%s]: disposed", c.cfg.LanguageID))
}

// writeLocked marshals and writes one frame while c.mu is held. Lock
// order is always c.mu before c.writeMu, never the reverse.
func (c *Client) writeLocked(v any) {
	if c.ws == nil {
		return
	}
	c.writeJSON(c.ws, v)
}

func (c *Client) writeJSON(ws *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteJSON(v)
}

func dialWebSocket(wsURL string, timeout time.Duration) (*websocket.Conn, error) {
	netDialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	dialer := websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) {
			conn, err := netDialer.Dial(network, addr)
			if err != nil {
				return nil, err
			}
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				tcpConn.SetNoDelay(true)
			}
			return conn, nil
		},
		HandshakeTimeout: timeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	conn, _, err := dialer.Dial(wsURL, http.Header{})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
