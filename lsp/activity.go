package lsp

import (
	"sync"
	"time"
)

// MessageKind distinguishes the two server-to-client message channels.
type MessageKind string

const (
	MessageKindLog  MessageKind = "log"  // window/logMessage
	MessageKindShow MessageKind = "show" // window/showMessage
)

// ServerMessage is one normalized window/logMessage or window/showMessage
// payload. Type follows the protocol scale (1 error .. 4 log).
type ServerMessage struct {
	Kind    MessageKind
	Type    int
	Message string
	Time    time.Time
}

const serverMessageHistory = 64

// ServerMessageLog keeps a bounded history of server-sent messages so
// status tooling can show what the server has been saying (parse errors,
// index progress, auth complaints) without scraping logs.
type ServerMessageLog struct {
	mu      sync.RWMutex
	entries []ServerMessage
	last    *ServerMessage
}

func NewServerMessageLog() *ServerMessageLog {
	return &ServerMessageLog{}
}

func (l *ServerMessageLog) Record(m ServerMessage) {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, m)
	if len(l.entries) > serverMessageHistory {
		l.entries = l.entries[len(l.entries)-serverMessageHistory:]
	}
	l.last = &m
}

// Snapshot returns a copy of the retained history, oldest first.
func (l *ServerMessageLog) Snapshot() []ServerMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ServerMessage, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns the most recent message, or nil when nothing arrived yet.
func (l *ServerMessageLog) Last() *ServerMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.last == nil {
		return nil
	}
	tmp := *l.last
	return &tmp
}
