// Package config loads the console-lsp configuration: one WebSocket
// endpoint per language, connection tuning and warm-up settings. Values
// come from a JSON file merged over built-in defaults, with environment
// variable overrides applied last.
package config

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// EnvConfigPath names the config file when no flag is given.
const EnvConfigPath = "CONSOLE_LSP_CONFIG"

// DefaultPath is used when neither flag nor env var points anywhere.
const DefaultPath = "console-lsp.json"

// LanguageConfig is one language server endpoint.
type LanguageConfig struct {
	// URL is the WebSocket endpoint, ws:// or wss://.
	URL string `json:"url"`
	// Token is appended as an auth query parameter when set. The SQL
	// endpoint requires it; the FHIRPath endpoint does not.
	Token string `json:"token,omitempty"`
	// FormatterOptions ride along on every formatting request for this
	// language (keyword casing, dialect and the like).
	FormatterOptions map[string]any `json:"formatterOptions,omitempty"`
}

// Config is the full console-lsp configuration.
type Config struct {
	Languages map[string]LanguageConfig `json:"languages"`

	// Connection tuning, in milliseconds. Zero means the built-in default.
	RequestTimeoutMS   int `json:"requestTimeoutMs,omitempty"`
	ReconnectInitialMS int `json:"reconnectInitialMs,omitempty"`
	ReconnectMaxMS     int `json:"reconnectMaxMs,omitempty"`
	DebounceMS         int `json:"debounceMs,omitempty"`

	// WarmupLanguages are connected eagerly in the background on startup.
	WarmupLanguages []string `json:"warmupLanguages,omitempty"`

	LogLevel string `json:"logLevel,omitempty"`
}

// ResolvePath returns the config file path the fallback chain would use:
// $CONSOLE_LSP_CONFIG when set, DefaultPath otherwise.
func ResolvePath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return DefaultPath
}

// LanguageIDs returns the configured language ids, sorted.
func (c *Config) LanguageIDs() []string {
	ids := make([]string, 0, len(c.Languages))
	for lang := range c.Languages {
		ids = append(ids, lang)
	}
	sort.Strings(ids)
	return ids
}

// Default returns the local-development configuration: both console
// languages against a server on localhost.
func Default() *Config {
	return &Config{
		Languages: map[string]LanguageConfig{
			"sql": {
				URL:   "ws://localhost:8090/ws/lsp/sql",
				Token: "${CONSOLE_SQL_TOKEN}",
			},
			"fhirpath": {
				URL: "ws://localhost:8090/ws/lsp/fhirpath",
			},
		},
		WarmupLanguages: []string{"fhirpath"},
		LogLevel:        "info",
	}
}

// Load reads the file at path, merges it over the defaults and applies
// environment overrides. An empty path falls back to $CONSOLE_LSP_CONFIG,
// then to DefaultPath; a missing file at those fallback locations is not
// an error, an explicitly given path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			ApplyEnvOverrides(cfg)
			return cfg, cfg.validate()
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.merge(&file)

	ApplyEnvOverrides(cfg)
	return cfg, errors.Wrapf(cfg.validate(), "validate config %s", path)
}

// merge overlays non-zero file values onto the defaults. Languages from
// the file replace same-named defaults wholesale.
func (c *Config) merge(file *Config) {
	for lang, lc := range file.Languages {
		if c.Languages == nil {
			c.Languages = map[string]LanguageConfig{}
		}
		c.Languages[lang] = lc
	}
	if file.RequestTimeoutMS > 0 {
		c.RequestTimeoutMS = file.RequestTimeoutMS
	}
	if file.ReconnectInitialMS > 0 {
		c.ReconnectInitialMS = file.ReconnectInitialMS
	}
	if file.ReconnectMaxMS > 0 {
		c.ReconnectMaxMS = file.ReconnectMaxMS
	}
	if file.DebounceMS > 0 {
		c.DebounceMS = file.DebounceMS
	}
	if file.WarmupLanguages != nil {
		c.WarmupLanguages = file.WarmupLanguages
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
}

func (c *Config) validate() error {
	if len(c.Languages) == 0 {
		return errors.New("no languages configured")
	}
	for lang, lc := range c.Languages {
		if strings.TrimSpace(lc.URL) == "" {
			return errors.Errorf("language %q has no url", lang)
		}
		if !strings.HasPrefix(lc.URL, "ws://") && !strings.HasPrefix(lc.URL, "wss://") {
			return errors.Errorf("language %q url must be ws:// or wss://, got %q", lang, lc.URL)
		}
	}
	return nil
}

// RequestTimeout converts the millisecond field; zero yields zero and the
// client falls back to its own default.
func (c *Config) RequestTimeout() time.Duration   { return time.Duration(c.RequestTimeoutMS) * time.Millisecond }
func (c *Config) ReconnectInitial() time.Duration { return time.Duration(c.ReconnectInitialMS) * time.Millisecond }
func (c *Config) ReconnectMax() time.Duration     { return time.Duration(c.ReconnectMaxMS) * time.Millisecond }
func (c *Config) Debounce() time.Duration         { return time.Duration(c.DebounceMS) * time.Millisecond }

// ApplyEnvOverrides mutates cfg from environment variables so deployments
// can tune endpoints from outside without editing the file.
//
// Supported:
//   - CONSOLE_LSP_<LANG>_URL:   endpoint override per language
//   - CONSOLE_LSP_<LANG>_TOKEN: token override per language
//   - CONSOLE_LSP_TOKEN:        fallback token for every language with one
//   - CONSOLE_LSP_LOG_LEVEL:    log level override
//   - Any env var: ${VAR_NAME} syntax is expanded in urls and tokens
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil || cfg.Languages == nil {
		return
	}

	globalToken := strings.TrimSpace(os.Getenv("CONSOLE_LSP_TOKEN"))

	for lang, lc := range cfg.Languages {
		key := strings.ToUpper(strings.ReplaceAll(lang, "-", "_"))

		if v := strings.TrimSpace(os.Getenv("CONSOLE_LSP_" + key + "_URL")); v != "" {
			lc.URL = v
		}
		if v := strings.TrimSpace(os.Getenv("CONSOLE_LSP_" + key + "_TOKEN")); v != "" {
			lc.Token = v
		} else if globalToken != "" && lc.Token != "" {
			lc.Token = globalToken
		}

		lc.URL = expandEnv(lc.URL)
		lc.Token = expandEnv(lc.Token)
		// An unexpanded token placeholder means the var is absent; treat it
		// as no token rather than sending the placeholder to the server.
		if strings.Contains(lc.Token, "${") {
			lc.Token = ""
		}

		cfg.Languages[lang] = lc
	}

	if v := strings.TrimSpace(os.Getenv("CONSOLE_LSP_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}

// expandEnv replaces ${VAR_NAME} placeholders with environment values. An
// unset variable leaves the placeholder unchanged.
func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		if val, exists := os.LookupEnv(key); exists {
			return val
		}
		return "${" + key + "}"
	})
}
