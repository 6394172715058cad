package lsp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/octofhir/console-lsp/logger"
)

// pendingRequest is one in-flight JSON-RPC call: the event-to-promise
// adapter between the socket's message stream and a blocking caller.
type pendingRequest struct {
	id     int64
	method string
	timer  *time.Timer
	// outcome is buffered so resolution never blocks on the caller.
	outcome chan requestOutcome
}

type requestOutcome struct {
	result json.RawMessage
	err    error
}

// SendRequest issues a JSON-RPC request and blocks for the response,
// waiting for the connection to become ready first. The result, when
// non-nil, is unmarshalled from the response's result field. Timeout <= 0
// falls back to the configured request timeout, measured from send time.
func (c *Client) SendRequest(method string, params, result any, timeout time.Duration) error {
	if err := c.waitUntilReady(); err != nil {
		return err
	}
	return c.sendRequest(method, params, result, timeout)
}

// sendRequestDuringHandshake bypasses the readiness gate. Only the
// initialize call uses it: readiness is defined by the completion of that
// very request.
func (c *Client) sendRequestDuringHandshake(method string, params, result any, timeout time.Duration) error {
	return c.sendRequest(method, params, result, timeout)
}

func (c *Client) sendRequest(method string, params, result any, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.cfg.RequestTimeout
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	ws := c.ws
	if ws == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}

	c.nextID++
	id := c.nextID
	p := &pendingRequest{
		id:      id,
		method:  method,
		outcome: make(chan requestOutcome, 1),
	}
	p.timer = time.AfterFunc(timeout, func() {
		c.expireRequest(id)
	})
	c.pending[id] = p
	c.mu.Unlock()

	env := requestEnvelope{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.writeJSON(ws, env); err != nil {
		c.dropPending(id)
		return fmt.Errorf("lsp: send %s: %w", method, err)
	}

	out := <-p.outcome
	if out.err != nil {
		return out.err
	}
	if result != nil && len(out.result) > 0 {
		if err := json.Unmarshal(out.result, result); err != nil {
			return fmt.Errorf("lsp: decode %s response: %w", method, err)
		}
	}
	return nil
}

// handleResponse resolves the pending request matching the response id.
// Responses with unknown ids (already timed out, rejected in bulk) are
// dropped without affecting other pending requests.
func (c *Client) handleResponse(rawID json.RawMessage, result json.RawMessage, respErr *responseError) {
	id, ok := decodeNumericID(rawID)
	if !ok {
		logger.Debug(fmt.Sprintf("lsp[%s]: response with non-numeric id %s dropped", c.cfg.LanguageID, string(rawID)))
		return
	}

	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		logger.Debug(fmt.Sprintf("lsp[%s]: response for unknown id %d dropped", c.cfg.LanguageID, id))
		return
	}
	delete(c.pending, id)
	p.timer.Stop()
	c.mu.Unlock()

	if respErr != nil {
		p.outcome <- requestOutcome{err: respErr}
		return
	}
	p.outcome <- requestOutcome{result: result}
}

// expireRequest fires when a request's timeout elapses with no response.
// The id is removed, so a late response for it is ignored.
func (c *Client) expireRequest(id int64) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	c.mu.Unlock()

	logger.Warn(fmt.Sprintf("lsp[%s]: request %s (id %d) timed out", c.cfg.LanguageID, p.method, id))
	p.outcome <- requestOutcome{err: ErrRequestTimeout}
}

// dropPending removes a request that failed to reach the wire.
func (c *Client) dropPending(id int64) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		p.timer.Stop()
	}
	c.mu.Unlock()
}

// takePendingLocked empties the pending map for bulk rejection, stopping
// every timer. Caller holds c.mu.
func (c *Client) takePendingLocked() []*pendingRequest {
	if len(c.pending) == 0 {
		return nil
	}
	out := make([]*pendingRequest, 0, len(c.pending))
	for _, p := range c.pending {
		p.timer.Stop()
		out = append(out, p)
	}
	c.pending = make(map[int64]*pendingRequest)
	return out
}

func rejectAll(reqs []*pendingRequest, err error) {
	for _, p := range reqs {
		p.outcome <- requestOutcome{err: err}
	}
}

func decodeNumericID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		// Some servers echo ids back as strings.
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if id, err = strconv.ParseInt(s, 10, 64); err == nil {
				return id, true
			}
		}
		return 0, false
	}
	return id, true
}
