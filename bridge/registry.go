// Package bridge owns the per-language LSP clients. The registry replaces
// any notion of a process-wide connection singleton: each language id maps
// to one lsp.Client created lazily from configuration, and the whole set
// can be swapped when the configuration changes.
package bridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/octofhir/console-lsp/config"
	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/logger"
	"github.com/octofhir/console-lsp/lsp"

	"github.com/pkg/errors"
)

// Registry maps language ids to live clients.
type Registry struct {
	mu       sync.RWMutex
	cfg      *config.Config
	host     editor.Host
	clients  map[string]*lsp.Client
	disposed bool

	warmup warmupState
}

// NewRegistry creates a registry over cfg. host may be nil for headless
// use (the MCP tool surface drives clients directly).
func NewRegistry(cfg *config.Config, host editor.Host) *Registry {
	return &Registry{
		cfg:     cfg,
		host:    host,
		clients: make(map[string]*lsp.Client),
	}
}

// Languages returns the configured language ids, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.cfg.Languages))
	for lang := range r.cfg.Languages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// ClientFor returns the client for a language, creating and connecting it
// on first use. When the initial connection fails the client is still
// registered and keeps retrying in the background; the error tells the
// caller the client is not ready yet.
func (r *Registry) ClientFor(lang string) (*lsp.Client, error) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return nil, errors.New("registry disposed")
	}
	if c, ok := r.clients[lang]; ok {
		r.mu.Unlock()
		return c, nil
	}

	lc, ok := r.cfg.Languages[lang]
	if !ok {
		r.mu.Unlock()
		return nil, errors.Errorf("no endpoint configured for language %q", lang)
	}

	c := lsp.NewClient(r.clientConfig(lang, lc))
	r.clients[lang] = c
	r.mu.Unlock()

	if err := c.Start(); err != nil {
		return c, errors.Wrapf(err, "connect %s", lang)
	}
	return c, nil
}

// clientConfig builds the lsp.Config for one language. Caller holds r.mu.
func (r *Registry) clientConfig(lang string, lc config.LanguageConfig) lsp.Config {
	return lsp.Config{
		URL:              lc.URL,
		Token:            lc.Token,
		LanguageID:       lang,
		Editor:           r.host,
		RequestTimeout:   r.cfg.RequestTimeout(),
		ReconnectInitial: r.cfg.ReconnectInitial(),
		ReconnectMax:     r.cfg.ReconnectMax(),
		DebounceInterval: r.cfg.Debounce(),
		FormatterOptions: lc.FormatterOptions,
	}
}

// ConnectedClients returns a snapshot of the live clients.
func (r *Registry) ConnectedClients() map[string]*lsp.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*lsp.Client, len(r.clients))
	for lang, c := range r.clients {
		out[lang] = c
	}
	return out
}

// UpdateConfig swaps in a new configuration. Clients whose endpoint
// settings changed, and clients for languages that disappeared, are
// disposed; their replacements are created lazily on next use.
func (r *Registry) UpdateConfig(cfg *config.Config) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}

	var stale []*lsp.Client
	for lang, c := range r.clients {
		next, stillThere := cfg.Languages[lang]
		if stillThere && !endpointChanged(r.cfg.Languages[lang], next) {
			continue
		}
		stale = append(stale, c)
		delete(r.clients, lang)
		logger.Info(fmt.Sprintf("bridge: endpoint for %s changed, dropping client", lang))
	}
	r.cfg = cfg
	r.mu.Unlock()

	for _, c := range stale {
		c.Dispose()
	}
}

func endpointChanged(old, next config.LanguageConfig) bool {
	return old.URL != next.URL || old.Token != next.Token
}

// DisposeAll tears every client down. The registry is unusable afterwards.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	clients := r.clients
	r.clients = make(map[string]*lsp.Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Dispose()
	}
	logger.Info("bridge: all clients disposed")
}
