package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// SetupLogging installs the process logger from HEDDLE_DEBUG and
// HEDDLE_DEBUG_FILE. HEDDLE_DEBUG: "" leaves debug off, "1"/"true" enables
// every channel, anything else is a comma-separated channel list. With
// HEDDLE_DEBUG_FILE set, lines append to that file instead of stderr;
// stdout stays reserved for protocol frames in headless mode.
//
// The returned func closes the debug file, if any.
func SetupLogging() (func(), error) {
	debug := strings.TrimSpace(os.Getenv("HEDDLE_DEBUG"))

	level := slog.LevelInfo
	var channels map[string]bool
	switch debug {
	case "":
	case "1", "true":
		level = slog.LevelDebug
	default:
		level = slog.LevelDebug
		channels = make(map[string]bool)
		for _, ch := range strings.Split(debug, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels[ch] = true
			}
		}
	}

	cleanup := func() {}
	var handler slog.Handler
	if path := os.Getenv("HEDDLE_DEBUG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open debug file: %w", err)
		}
		cleanup = func() { f.Close() }
		handler = newLineHandler(f, level)
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(&channelFilter{inner: handler, channels: channels}))
	return cleanup, nil
}

// channelFilter drops debug records whose "channel" attribute is not in the
// configured set. Info and above always pass, as do records without a
// channel. A nil set passes everything.
type channelFilter struct {
	inner    slog.Handler
	channels map[string]bool
}

func (h *channelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *channelFilter) Handle(ctx context.Context, rec slog.Record) error {
	if h.channels != nil && rec.Level < slog.LevelInfo {
		channel := ""
		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == "channel" {
				channel = a.Value.String()
				return false
			}
			return true
		})
		if channel != "" && !h.channels[channel] {
			return nil
		}
	}
	return h.inner.Handle(ctx, rec)
}

func (h *channelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &channelFilter{inner: h.inner.WithAttrs(attrs), channels: h.channels}
}

func (h *channelFilter) WithGroup(name string) slog.Handler {
	return &channelFilter{inner: h.inner.WithGroup(name), channels: h.channels}
}

// lineHandler writes "<RFC3339> <LEVEL> <msg> k=v ..." lines, one per
// record, for the HEDDLE_DEBUG_FILE sink. Clones share one writer lock.
type lineHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

func newLineHandler(w io.Writer, level slog.Level) *lineHandler {
	return &lineHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *lineHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *lineHandler) Handle(ctx context.Context, rec slog.Record) error {
	var b strings.Builder
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(rec.Level.String())
	b.WriteByte(' ')
	b.WriteString(rec.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	rec.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := &lineHandler{mu: h.mu, w: h.w, level: h.level}
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	return h
}
