package lsp

import (
	"fmt"

	"github.com/octofhir/console-lsp/logger"
)

// SendNotification sends a fire-and-forget notification. When the
// connection is not yet ready the notification is queued FIFO and flushed
// right after the initialized handshake step; a queued-but-unsent
// notification is dropped if the socket closes abnormally first (didOpen
// replay on reconnect makes that safe).
func (c *Client) SendNotification(method string, params any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}

	if c.state == StateReady && c.ws != nil {
		c.writeLocked(notificationEnvelope{JSONRPC: "2.0", Method: method, Params: params})
		return nil
	}

	c.queue = append(c.queue, queuedNotification{method: method, params: params})
	return nil
}

// flushNotificationQueueLocked sends queued notifications in original
// order until the queue is empty or the socket is gone; anything left
// stays queued for a future flush. Caller holds c.mu.
func (c *Client) flushNotificationQueueLocked() {
	if len(c.queue) == 0 {
		return
	}
	logger.Debug(fmt.Sprintf("lsp[%s]: flushing %d queued notifications", c.cfg.LanguageID, len(c.queue)))

	for len(c.queue) > 0 {
		if c.ws == nil {
			return
		}
		n := c.queue[0]
		c.queue = c.queue[1:]
		c.writeLocked(notificationEnvelope{JSONRPC: "2.0", Method: n.method, Params: n.params})
	}
	c.queue = nil
}
