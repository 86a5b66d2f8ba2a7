// Package tracing is the always-on in-process span collector. Spans are
// buffered on a channel and flushed in batches; without an exporter they
// are dropped at flush, so emitting is free enough to leave enabled.
package tracing

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultFlushInterval = 5 * time.Second
	defaultBufferSize    = 1000

	// PreviewMaxLen caps tool output previews attached to spans.
	PreviewMaxLen = 500
)

// Span kinds emitted by the agent loop and the IPC worker.
const (
	KindSend         = "send"
	KindProviderCall = "provider_call"
	KindToolCall     = "tool_call"
)

// Span is one unit of traced work. ParentID is uuid.Nil for roots.
type Span struct {
	TraceID  uuid.UUID
	ID       uuid.UUID
	ParentID uuid.UUID
	Kind     string
	Name     string
	Start    time.Time
	End      time.Time
	Status   string // "ok" or "error"
	Error    string
	Attrs    map[string]string
}

// StartSpan begins a span now with a fresh id.
func StartSpan(traceID, parentID uuid.UUID, kind, name string) Span {
	return Span{
		TraceID:  traceID,
		ID:       uuid.New(),
		ParentID: parentID,
		Kind:     kind,
		Name:     name,
		Start:    time.Now().UTC(),
		Status:   "ok",
	}
}

// Finish stamps the end time and records the error, if any.
func (s *Span) Finish(err error) {
	s.End = time.Now().UTC()
	if err != nil {
		s.Status = "error"
		s.Error = err.Error()
	}
}

// SetAttr attaches one attribute, creating the map lazily.
func (s *Span) SetAttr(key, value string) {
	if s.Attrs == nil {
		s.Attrs = make(map[string]string)
	}
	s.Attrs[key] = value
}

// Exporter receives flushed span batches. The OTLP implementation lives in
// the otelexport sub-package so the OTel SDK only links in when wanted.
type Exporter interface {
	ExportSpans(ctx context.Context, spans []Span)
	Shutdown(ctx context.Context) error
}

// Collector buffers spans and flushes them every few seconds. Emit never
// blocks; spans are dropped when the buffer is full.
type Collector struct {
	spanCh   chan Span
	stopCh   chan struct{}
	wg       sync.WaitGroup
	exporter Exporter
}

// NewCollector creates a collector. A nil exporter is valid and makes
// flushing a drop.
func NewCollector(exporter Exporter) *Collector {
	return &Collector{
		spanCh:   make(chan Span, defaultBufferSize),
		stopCh:   make(chan struct{}),
		exporter: exporter,
	}
}

// SetExporter attaches an exporter. Call before Start.
func (c *Collector) SetExporter(exp Exporter) {
	c.exporter = exp
}

// Start begins the background flush loop.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.flushLoop()
}

// Stop drains remaining spans and shuts the exporter down.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()

	if c.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.exporter.Shutdown(ctx); err != nil {
			slog.Warn("span exporter shutdown failed", "error", err)
		}
	}
}

// Emit enqueues a span. Non-blocking: a full buffer drops the span.
func (c *Collector) Emit(span Span) {
	if span.ID == uuid.Nil {
		span.ID = uuid.New()
	}
	select {
	case c.spanCh <- span:
	default:
		slog.Debug("span buffer full, dropping", "channel", "agent", "kind", span.Kind, "name", span.Name)
	}
}

func (c *Collector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stopCh:
			c.flush()
			return
		}
	}
}

func (c *Collector) flush() {
	var spans []Span
	for {
		select {
		case span := <-c.spanCh:
			spans = append(spans, span)
		default:
			if len(spans) == 0 || c.exporter == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			c.exporter.ExportSpans(ctx, spans)
			slog.Debug("spans flushed", "channel", "agent", "count", len(spans))
			return
		}
	}
}

// Preview sanitizes and truncates a string to PreviewMaxLen bytes on a rune
// boundary.
func Preview(s string) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= PreviewMaxLen {
		return s
	}
	end := PreviewMaxLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "..."
}
