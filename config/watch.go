package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/octofhir/console-lsp/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher reloads the config file when it changes on disk and hands the
// parsed result to a callback. Reload failures keep the previous config;
// they are logged, never fatal.
type Watcher struct {
	path     string
	onChange func(*Config)

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	debounce *time.Timer
	closed   bool
}

const reloadDebounce = 200 * time.Millisecond

// Watch starts watching path. The callback runs on the watcher's
// goroutine after every successful reload.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fs watcher")
	}

	// Watch the directory, not the file: editors and config management
	// tools replace files via rename, which drops a file-level watch.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch %s", dir)
	}

	w := &Watcher{path: path, onChange: onChange, fsw: fsw}
	go w.loop()

	logger.Debug(fmt.Sprintf("config: watching %s", path))
	return w, nil
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.path)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn(fmt.Sprintf("config: watch error: %v", err))
		}
	}
}

// scheduleReload debounces bursts of events for one file replacement into
// a single reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn(fmt.Sprintf("config: reload failed, keeping previous: %v", err))
		return
	}

	logger.Info(fmt.Sprintf("config: reloaded %s", w.path))
	w.onChange(cfg)
}

// Close stops watching. Pending debounced reloads are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	w.mu.Unlock()

	return w.fsw.Close()
}
