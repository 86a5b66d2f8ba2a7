package instructions

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces editor write bursts into one version bump.
const watchDebounce = 300 * time.Millisecond

// Watcher monitors instruction files and skill directories and bumps the
// loader version when any of them change. Consumers compare Version between
// sends to decide whether to recompose the context.
type Watcher struct {
	loader *Loader
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// NewWatcher builds a watcher over the loader's targets.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{loader: loader, fsw: fsw}, nil
}

// Start begins watching. Missing directories are skipped silently; skill
// subdirectories are added so SKILL.md edits are seen.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.loader.WatchTargets() {
		if err := w.fsw.Add(dir); err != nil {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				_ = w.fsw.Add(filepath.Join(dir, e.Name()))
			}
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for its goroutine.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Debug("instructions watcher error", "channel", "session", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New skill directory: watch it so its SKILL.md is seen too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
		}
	}

	if !relevantFile(filepath.Base(event.Name)) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.schedule()
}

func relevantFile(base string) bool {
	if strings.EqualFold(base, "SKILL.md") {
		return true
	}
	for _, name := range instructionFileNames {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	w.loader.Bump()
	slog.Debug("instructions changed", "channel", "session", "version", w.loader.Version())
}
