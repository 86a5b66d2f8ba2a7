package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the freshly merged config after a reload.
type ChangeHandler func(cfg *Config)

// Watcher re-merges the layered config when the global or project file
// changes. Bursts of writes are debounced so editors that write multiple
// times per save trigger one reload. Long-running surfaces (the REPL) use
// this to pick up config edits between sends.
type Watcher struct {
	cwd      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	stop     chan struct{}

	mu       sync.Mutex
	handlers []ChangeHandler
}

// NewWatcher builds a watcher over the config layers visible from cwd.
func NewWatcher(cwd string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		cwd:      cwd,
		watcher:  fw,
		debounce: 300 * time.Millisecond,
	}, nil
}

// OnChange registers a reload handler.
func (w *Watcher) OnChange(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching. Missing files are skipped; at least one existing
// layer is required for the watch to be useful, but none existing is not an
// error.
func (w *Watcher) Start() error {
	for _, path := range []string{GlobalPath(), FindProjectFile(w.cwd)} {
		if path == "" {
			continue
		}
		if err := w.watcher.Add(path); err != nil {
			slog.Debug("config watch skipped", "channel", "config", "path", path, "error", err)
		}
	}
	w.stop = make(chan struct{})
	go w.loop()
	return nil
}

// Stop halts the watcher.
func (w *Watcher) Stop() {
	if w.stop != nil {
		close(w.stop)
	}
	w.watcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("config watcher error", "channel", "config", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadLayered(w.cwd)
	if err != nil {
		slog.Debug("config reload failed", "channel", "config", "error", err)
		return
	}
	w.mu.Lock()
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()
	for _, h := range handlers {
		h(cfg)
	}
	slog.Debug("config reloaded", "channel", "config", "cwd", w.cwd)
}
