// console-lsp: MCP server bridging console documents to language servers.
//
// The process speaks MCP on stdio and keeps one WebSocket LSP client per
// configured language. Tools let callers open documents, edit them, and
// query completions, hover, formatting and diagnostics.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/octofhir/console-lsp/config"
	"github.com/octofhir/console-lsp/logger"
	"github.com/octofhir/console-lsp/mcpserver"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var (
		configPath string
		syncWarmup bool
	)

	rootCmd := &cobra.Command{
		Use:     "console-lsp",
		Short:   "MCP bridge between console documents and WebSocket language servers",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, syncWarmup)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file path (default $%s, then %s)", config.EnvConfigPath, config.DefaultPath))
	rootCmd.Flags().BoolVar(&syncWarmup, "sync-warmup", false,
		"connect warm-up languages before serving instead of in the background")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, syncWarmup bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// MCP owns stdout, so logs go to stderr.
	logger.Configure(os.Stderr, cfg.LogLevel)
	logger.Info("starting console-lsp", "version", version, "languages", cfg.LanguageIDs())

	console := mcpserver.NewConsole(cfg)
	defer console.Close()

	if syncWarmup {
		console.Registry().SyncWarmup()
	} else {
		console.Registry().StartWarmup()
	}

	watchPath := configPath
	if watchPath == "" {
		watchPath = config.ResolvePath()
	}
	if watchPath != "" {
		watcher, err := config.Watch(watchPath, func(next *config.Config) {
			logger.Info("configuration reloaded", "path", watchPath)
			console.Registry().UpdateConfig(next)
		})
		if err != nil {
			logger.Warn("config watch unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		console.Close()
		os.Exit(0)
	}()

	mcpServer := mcpserver.NewServer(console, version)
	logger.Info("serving MCP on stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
