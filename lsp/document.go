package lsp

import (
	"fmt"
	"sync"
	"time"

	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/logger"
)

// trackedDocument binds one editor buffer to the server's view of an open
// document: didOpen on bind, debounced full-text didChange on every edit,
// didClose on unbind.
type trackedDocument struct {
	uri string
	buf editor.Buffer

	mu             sync.Mutex
	removeListener func()
	debounce       *time.Timer
	unbound        bool
}

// BindBuffer starts tracking a buffer. It sends didOpen immediately (or
// queues it when the connection is not yet ready) and returns an unbind
// func that stops the change listener, cancels any pending debounce and
// sends didClose. Binding a URI that is already tracked replaces the
// previous binding.
func (c *Client) BindBuffer(buf editor.Buffer) (func(), error) {
	uri := buf.URI()
	if uri == "" {
		return nil, fmt.Errorf("lsp: buffer has no uri")
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	existing := c.docs[uri]
	c.mu.Unlock()

	if existing != nil {
		logger.Warn(fmt.Sprintf("lsp[%s]: rebinding already-tracked document %s", c.cfg.LanguageID, uri))
		c.unbindDocument(existing)
	}

	doc := &trackedDocument{uri: uri, buf: buf}
	doc.removeListener = buf.OnChange(func() {
		c.scheduleChange(doc)
	})

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		doc.silence()
		return nil, ErrDisposed
	}
	c.docs[uri] = doc
	c.docOrder = append(c.docOrder, uri)
	c.mu.Unlock()

	c.SendNotification("textDocument/didOpen", didOpenParams(buf))

	var once sync.Once
	return func() {
		once.Do(func() {
			c.unbindDocument(doc)
		})
	}, nil
}

// scheduleChange resets the document's debounce timer; the didChange with
// the full current text goes out only after the buffer stays quiet for
// the debounce interval.
func (c *Client) scheduleChange(doc *trackedDocument) {
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.unbound {
		return
	}
	if doc.debounce != nil {
		doc.debounce.Stop()
	}
	doc.debounce = time.AfterFunc(c.cfg.DebounceInterval, func() {
		doc.mu.Lock()
		if doc.unbound {
			doc.mu.Unlock()
			return
		}
		doc.debounce = nil
		doc.mu.Unlock()

		c.SendNotification("textDocument/didChange", didChangeParams(doc.buf))
	})
}

// unbindDocument removes a document from tracking and notifies the server.
func (c *Client) unbindDocument(doc *trackedDocument) {
	doc.silence()

	c.mu.Lock()
	if c.docs[doc.uri] == doc {
		delete(c.docs, doc.uri)
		for i, uri := range c.docOrder {
			if uri == doc.uri {
				c.docOrder = append(c.docOrder[:i], c.docOrder[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	c.SendNotification("textDocument/didClose", didCloseParams(doc.uri))
}

// TrackedDocuments returns the URIs currently bound, in binding order.
func (c *Client) TrackedDocuments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.docOrder))
	copy(out, c.docOrder)
	return out
}

// silence detaches the document from its buffer: change listener removed,
// pending debounce cancelled, no further notifications. Used on unbind
// and on client disposal (which does not send didClose).
func (d *trackedDocument) silence() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unbound = true
	if d.debounce != nil {
		d.debounce.Stop()
		d.debounce = nil
	}
	if d.removeListener != nil {
		d.removeListener()
		d.removeListener = nil
	}
}
