package bridge

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/octofhir/console-lsp/logger"
)

// Warm-up eagerly connects the configured languages so the first
// completion keystroke does not pay the dial-plus-handshake cost. It is
// best effort: failures are recorded, never fatal, and the clients keep
// retrying on their own afterwards.

type warmupState struct {
	mu          sync.Mutex
	lastAttempt time.Time
	startedAt   time.Time
	finishedAt  time.Time
	running     bool
	done        bool
	lastErr     string
}

const warmupThrottle = 10 * time.Second

// WarmupStatus is a snapshot of the warm-up lifecycle for status tooling.
type WarmupStatus struct {
	Running    bool
	Done       bool
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StartWarmup kicks off background connection of the warm-up languages.
// Non-blocking, throttled, safe to call repeatedly.
func (r *Registry) StartWarmup() {
	r.warmup.mu.Lock()
	defer r.warmup.mu.Unlock()

	now := time.Now()
	if !r.warmup.lastAttempt.IsZero() && now.Sub(r.warmup.lastAttempt) < warmupThrottle {
		return
	}
	r.warmup.lastAttempt = now

	if r.warmup.done || r.warmup.running {
		return
	}

	r.warmup.running = true
	if r.warmup.startedAt.IsZero() {
		r.warmup.startedAt = now
	}
	r.warmup.lastErr = ""

	go r.runWarmup()
}

// SyncWarmup connects the warm-up languages and blocks until every
// attempt finished. Used by the CLI when eager startup is requested.
func (r *Registry) SyncWarmup() {
	r.warmup.mu.Lock()
	if r.warmup.done || r.warmup.running {
		r.warmup.mu.Unlock()
		return
	}
	r.warmup.running = true
	now := time.Now()
	r.warmup.lastAttempt = now
	if r.warmup.startedAt.IsZero() {
		r.warmup.startedAt = now
	}
	r.warmup.lastErr = ""
	r.warmup.mu.Unlock()

	r.runWarmup()
}

func (r *Registry) runWarmup() {
	r.mu.RLock()
	langs := append([]string(nil), r.cfg.WarmupLanguages...)
	r.mu.RUnlock()

	if len(langs) == 0 {
		r.finishWarmup(nil)
		return
	}

	logger.Info(fmt.Sprintf("bridge: warm-up connecting %s", strings.Join(langs, ",")))

	var lastErr error
	for _, lang := range langs {
		if _, err := r.ClientFor(lang); err != nil {
			logger.Warn(fmt.Sprintf("bridge: warm-up for %s failed: %v", lang, err))
			lastErr = err
			continue
		}
		logger.Debug(fmt.Sprintf("bridge: warm-up connected %s", lang))
	}

	r.finishWarmup(lastErr)
}

func (r *Registry) finishWarmup(err error) {
	r.warmup.mu.Lock()
	defer r.warmup.mu.Unlock()

	r.warmup.running = false
	r.warmup.finishedAt = time.Now()
	if err != nil {
		r.warmup.lastErr = err.Error()
		// Not marked done: a later StartWarmup may retry.
		r.warmup.done = false
		return
	}
	r.warmup.lastErr = ""
	r.warmup.done = true
}

// WarmupStatus returns the current warm-up state.
func (r *Registry) WarmupStatus() WarmupStatus {
	r.warmup.mu.Lock()
	defer r.warmup.mu.Unlock()

	return WarmupStatus{
		Running:    r.warmup.running,
		Done:       r.warmup.done,
		Err:        r.warmup.lastErr,
		StartedAt:  r.warmup.startedAt,
		FinishedAt: r.warmup.finishedAt,
	}
}
