// Package mcpserver wires the bridge registry into an MCP server: a
// headless console whose documents live in memory and whose language
// intelligence comes from the registry's LSP clients.
package mcpserver

import (
	"sort"
	"sync"

	"github.com/octofhir/console-lsp/bridge"
	"github.com/octofhir/console-lsp/config"
	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/lsp"
	"github.com/octofhir/console-lsp/mcpserver/tools"
	"github.com/octofhir/console-lsp/utils"

	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

// Console implements tools.ConsoleBridge over a registry. It doubles as
// the editor.Host the clients register their capability providers with,
// so the tool surface exercises the same provider path a real editor
// would.
type Console struct {
	registry *bridge.Registry

	mu         sync.RWMutex
	docs       map[string]*openDocument
	completion map[string]editor.CompletionProvider
	hover      map[string]editor.HoverProvider
	formatting map[string]editor.FormattingProvider
}

type openDocument struct {
	language string
	buf      *editor.MemoryBuffer
	unbind   func()
}

// NewConsole builds a console over cfg. The registry connects languages
// lazily; call Registry().StartWarmup() for eager startup.
func NewConsole(cfg *config.Config) *Console {
	c := &Console{
		docs:       make(map[string]*openDocument),
		completion: make(map[string]editor.CompletionProvider),
		hover:      make(map[string]editor.HoverProvider),
		formatting: make(map[string]editor.FormattingProvider),
	}
	c.registry = bridge.NewRegistry(cfg, c)
	return c
}

// Registry exposes the underlying registry for lifecycle management.
func (c *Console) Registry() *bridge.Registry {
	return c.registry
}

// Close disposes every document and client.
func (c *Console) Close() {
	c.mu.Lock()
	docs := c.docs
	c.docs = make(map[string]*openDocument)
	c.mu.Unlock()

	for _, d := range docs {
		d.unbind()
		d.buf.Dispose()
	}
	c.registry.DisposeAll()
}

// editor.Host implementation; the lsp clients call these on Start.

func (c *Console) RegisterCompletionProvider(languageID string, p editor.CompletionProvider) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completion[languageID] = p
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.completion[languageID] == p {
			delete(c.completion, languageID)
		}
	}
}

func (c *Console) RegisterHoverProvider(languageID string, p editor.HoverProvider) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hover[languageID] = p
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.hover[languageID] == p {
			delete(c.hover, languageID)
		}
	}
}

func (c *Console) RegisterFormattingProvider(languageID string, p editor.FormattingProvider) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formatting[languageID] = p
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.formatting[languageID] == p {
			delete(c.formatting, languageID)
		}
	}
}

// tools.ConsoleBridge implementation.

func (c *Console) Status() tools.Status {
	clients := c.registry.ConnectedClients()

	c.mu.RLock()
	docsByLang := make(map[string][]string)
	for uri, d := range c.docs {
		docsByLang[d.language] = append(docsByLang[d.language], uri)
	}
	c.mu.RUnlock()

	st := tools.Status{Warmup: c.registry.WarmupStatus()}
	for _, lang := range c.registry.Languages() {
		ls := tools.LanguageStatus{Language: lang, State: lsp.StateDisconnected.String()}
		if client, ok := clients[lang]; ok {
			state := client.State()
			ls.State = state.String()
			ls.Connected = state == lsp.StateReady
			if last := client.Messages().Last(); last != nil {
				ls.LastServerMessage = last.Message
			}
		}
		docs := docsByLang[lang]
		sort.Strings(docs)
		ls.Documents = docs
		st.Languages = append(st.Languages, ls)
	}
	return st
}

func (c *Console) OpenDocument(language, name, text string) (string, error) {
	uri := utils.BufferURI(name)
	if uri == "" {
		return "", errors.New("document name is empty")
	}

	c.mu.RLock()
	_, exists := c.docs[uri]
	c.mu.RUnlock()
	if exists {
		return "", errors.Errorf("document %s is already open", uri)
	}

	client, err := c.registry.ClientFor(language)
	if err != nil && client == nil {
		return "", err
	}

	buf := editor.NewMemoryBuffer(name, language, text)
	unbind, err := client.BindBuffer(buf)
	if err != nil {
		buf.Dispose()
		return "", errors.Wrapf(err, "open %s", uri)
	}

	c.mu.Lock()
	if _, exists := c.docs[uri]; exists {
		c.mu.Unlock()
		unbind()
		buf.Dispose()
		return "", errors.Errorf("document %s is already open", uri)
	}
	c.docs[uri] = &openDocument{language: language, buf: buf, unbind: unbind}
	c.mu.Unlock()

	return uri, nil
}

func (c *Console) UpdateDocument(uri, text string) error {
	doc, err := c.document(uri)
	if err != nil {
		return err
	}
	doc.buf.SetText(text)
	return nil
}

func (c *Console) CloseDocument(uri string) error {
	uri = utils.NormalizeURI(uri)

	c.mu.Lock()
	doc, ok := c.docs[uri]
	if ok {
		delete(c.docs, uri)
	}
	c.mu.Unlock()

	if !ok {
		return errors.Errorf("document %s is not open", uri)
	}
	doc.unbind()
	doc.buf.Dispose()
	return nil
}

func (c *Console) Completion(uri string, line, character uint32, trigger string) (editor.CompletionList, error) {
	doc, err := c.document(uri)
	if err != nil {
		return editor.CompletionList{}, err
	}

	c.mu.RLock()
	p := c.completion[doc.language]
	c.mu.RUnlock()
	if p == nil {
		return editor.CompletionList{}, errors.Errorf("no completion provider for %s", doc.language)
	}
	return p.ProvideCompletion(doc.buf, editor.Position{Line: line, Character: character}, trigger), nil
}

func (c *Console) Hover(uri string, line, character uint32) (*editor.Hover, error) {
	doc, err := c.document(uri)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	p := c.hover[doc.language]
	c.mu.RUnlock()
	if p == nil {
		return nil, errors.Errorf("no hover provider for %s", doc.language)
	}
	return p.ProvideHover(doc.buf, editor.Position{Line: line, Character: character}), nil
}

func (c *Console) FormatDocument(uri string, tabSize uint32, insertSpaces bool) ([]editor.TextEdit, error) {
	doc, err := c.document(uri)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	p := c.formatting[doc.language]
	c.mu.RUnlock()
	if p == nil {
		return nil, errors.Errorf("no formatting provider for %s", doc.language)
	}
	return p.ProvideFormatting(doc.buf, editor.FormattingOptions{TabSize: tabSize, InsertSpaces: insertSpaces}), nil
}

func (c *Console) Diagnostics(uri string) ([]editor.Marker, error) {
	doc, err := c.document(uri)
	if err != nil {
		return nil, err
	}
	return doc.buf.Markers(lsp.DiagnosticsOwner), nil
}

func (c *Console) document(uri string) (*openDocument, error) {
	uri = utils.NormalizeURI(uri)

	c.mu.RLock()
	doc, ok := c.docs[uri]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("document %s is not open", uri)
	}
	return doc, nil
}

// NewServer builds the MCP server with every console tool registered.
func NewServer(c *Console, version string) *server.MCPServer {
	s := server.NewMCPServer("console-lsp", version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	RegisterAllTools(s, c)
	return s
}
