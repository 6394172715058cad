package editor

import (
	"sync"

	"github.com/octofhir/console-lsp/utils"
)

// Buffer is one open editor buffer. Implementations must be safe for
// concurrent use; the bridge reads text and sets markers from its own
// goroutines.
type Buffer interface {
	// URI is the buffer's canonical identity and must be stable for the
	// buffer's lifetime.
	URI() string
	LanguageID() string
	Version() int32
	Text() string
	// OnChange registers a listener invoked after every content change.
	// The returned func removes the listener.
	OnChange(fn func()) func()
	// SetMarkers replaces all markers held under owner on this buffer.
	SetMarkers(owner string, markers []Marker)
	// Disposed reports whether the buffer has been torn down by the
	// editor. Diagnostics arriving for disposed buffers are dropped.
	Disposed() bool
}

// MemoryBuffer is an in-process Buffer. The MCP tool surface edits these
// on behalf of agents, and tests use them as stand-ins for editor models.
type MemoryBuffer struct {
	mu         sync.RWMutex
	uri        string
	languageID string
	version    int32
	text       string
	disposed   bool
	markers    map[string][]Marker
	listeners  map[int]func()
	nextListen int
}

// NewMemoryBuffer creates a buffer. Name is canonicalized via
// utils.BufferURI, so plain names become inmemory URIs.
func NewMemoryBuffer(name, languageID, text string) *MemoryBuffer {
	return &MemoryBuffer{
		uri:        utils.BufferURI(name),
		languageID: languageID,
		version:    1,
		text:       text,
		markers:    make(map[string][]Marker),
		listeners:  make(map[int]func()),
	}
}

func (b *MemoryBuffer) URI() string {
	return b.uri
}

func (b *MemoryBuffer) LanguageID() string {
	return b.languageID
}

func (b *MemoryBuffer) Version() int32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *MemoryBuffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// SetText replaces the buffer content, bumps the version and fires change
// listeners.
func (b *MemoryBuffer) SetText(text string) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.text = text
	b.version++
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	// Listeners run outside the lock; they typically re-enter Text().
	for _, fn := range fns {
		fn()
	}
}

func (b *MemoryBuffer) OnChange(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextListen
	b.nextListen++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *MemoryBuffer) SetMarkers(owner string, markers []Marker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	if len(markers) == 0 {
		delete(b.markers, owner)
		return
	}
	cp := make([]Marker, len(markers))
	copy(cp, markers)
	b.markers[owner] = cp
}

// Markers returns the markers currently held under owner.
func (b *MemoryBuffer) Markers(owner string) []Marker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ms := b.markers[owner]
	cp := make([]Marker, len(ms))
	copy(cp, ms)
	return cp
}

func (b *MemoryBuffer) Disposed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.disposed
}

// Dispose tears the buffer down. Further SetText/SetMarkers calls are
// ignored.
func (b *MemoryBuffer) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.listeners = make(map[int]func())
	b.markers = make(map[string][]Marker)
}
