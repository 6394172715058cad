package lsp

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/octofhir/console-lsp/logger"
)

// notifLimiter rate-limits debug logging of server notifications nobody
// handles. Some servers stream $/status-style notifications continuously,
// and without a limiter those floods drown the log.
type notifLimiter struct {
	window     time.Duration
	burst      int
	paramLimit int

	mu      sync.Mutex
	buckets map[string]*notifBucket
}

type notifBucket struct {
	since      time.Time
	logged     int
	dropped    int
	floodNoted bool
}

var (
	unhandledNotifs     *notifLimiter
	unhandledNotifsOnce sync.Once
)

func newNotifLimiter() *notifLimiter {
	l := &notifLimiter{
		window:     10 * time.Second,
		burst:      3,
		paramLimit: 4096,
		buckets:    map[string]*notifBucket{},
	}
	if d, err := time.ParseDuration(os.Getenv("CONSOLE_LSP_UNHANDLED_NOTIFICATIONS_WINDOW")); err == nil && d > 0 {
		l.window = d
	}
	if n, err := strconv.Atoi(os.Getenv("CONSOLE_LSP_UNHANDLED_NOTIFICATIONS_BURST")); err == nil && n >= 0 {
		l.burst = n
	}
	if n, err := strconv.Atoi(os.Getenv("CONSOLE_LSP_UNHANDLED_NOTIFICATIONS_MAX_PARAM_BYTES")); err == nil && n >= 0 {
		l.paramLimit = n
	}
	return l
}

func logUnhandledNotification(method string, rawParams json.RawMessage) {
	unhandledNotifsOnce.Do(func() {
		unhandledNotifs = newNotifLimiter()
	})
	unhandledNotifs.log(method, rawParams)
}

func (l *notifLimiter) log(method string, rawParams json.RawMessage) {
	now := time.Now()

	l.mu.Lock()
	b := l.buckets[method]
	if b == nil {
		b = &notifBucket{since: now}
		l.buckets[method] = b
	}

	if l.window > 0 && now.Sub(b.since) >= l.window {
		if b.dropped > 0 {
			logger.Debug(fmt.Sprintf("unhandled notifications suppressed: method=%s count=%d window=%s",
				method, b.dropped, l.window))
		}
		*b = notifBucket{since: now}
	}

	if l.burst == 0 || b.logged >= l.burst {
		b.dropped++
		noteFlood := !b.floodNoted && l.burst > 0
		b.floodNoted = true
		l.mu.Unlock()

		if noteFlood {
			logger.Debug(fmt.Sprintf("unhandled notification flood: method=%s burst=%d window=%s, suppressing further",
				method, l.burst, l.window))
		}
		return
	}
	b.logged++
	l.mu.Unlock()

	logger.Debug(fmt.Sprintf("unhandled notification: %s%s", method, l.formatParams(rawParams)))
}

func (l *notifLimiter) formatParams(rawParams json.RawMessage) string {
	switch {
	case len(rawParams) == 0:
		return ""
	case l.paramLimit > 0 && len(rawParams) > l.paramLimit:
		return fmt.Sprintf(" params=%s...(truncated)", rawParams[:l.paramLimit])
	default:
		return fmt.Sprintf(" params=%s", rawParams)
	}
}
