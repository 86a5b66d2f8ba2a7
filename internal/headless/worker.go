// Package headless adapts the agent loop to a line-delimited JSON protocol
// on stdin/stdout, for controllers that embed heddle as a subprocess. One
// request is handled at a time; requests arriving during a send queue up
// behind it, except cancel, which the running send observes at event
// boundaries.
package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/heddlehq/heddle/internal/session"
	"github.com/heddlehq/heddle/internal/tracing"
	"github.com/heddlehq/heddle/pkg/protocol"
)

// maxLineBytes bounds a single stdin request line.
const maxLineBytes = 8 * 1024 * 1024

// SessionFactory builds the session an init request asks for. Tests
// substitute factories that point the provider at a fixture server.
type SessionFactory func(ctx context.Context, cfg protocol.InitConfig) (*session.Session, error)

// Config wires a worker. Zero values mean stdin/stdout, the on-disk
// protocol version, and the real session setup.
type Config struct {
	In         io.Reader
	Out        io.Writer
	Version    string
	NewSession SessionFactory
	Collector  *tracing.Collector
}

// Worker is the headless IPC adapter. The reader goroutine decodes and
// enqueues requests; a single dispatcher goroutine drains them, so handlers
// never run concurrently with each other.
type Worker struct {
	in        io.Reader
	out       io.Writer
	version   string
	create    SessionFactory
	collector *tracing.Collector

	runCtx context.Context

	mu           sync.Mutex
	queue        []*protocol.Request
	stdinClosed  bool
	stopped      bool
	exitCode     int
	activeID     string
	cancelTarget string

	outMu sync.Mutex

	sess *session.Session

	kick chan struct{}
	done chan struct{}
}

// NewWorker creates a worker from cfg.
func NewWorker(cfg Config) *Worker {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Version == "" {
		cfg.Version = protocol.OwnVersion()
	}
	if cfg.NewSession == nil {
		cfg.NewSession = createSession
	}
	return &Worker{
		in:        cfg.In,
		out:       cfg.Out,
		version:   cfg.Version,
		create:    cfg.NewSession,
		collector: cfg.Collector,
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func createSession(ctx context.Context, cfg protocol.InitConfig) (*session.Session, error) {
	return session.Create(ctx, session.CreateOptions{
		Model:         cfg.Model,
		SystemPrompt:  cfg.SystemPrompt,
		Tools:         cfg.Tools,
		MaxIterations: cfg.MaxIterations,
	})
}

// Run serves requests until shutdown, stdin EOF with an empty queue, or a
// fatal protocol failure, and returns the process exit code.
func (w *Worker) Run(ctx context.Context) int {
	w.runCtx = ctx
	slog.Debug("worker starting", "channel", "headless", "protocol_version", w.version)
	go w.readLoop()
	go w.dispatchLoop()
	<-w.done

	w.mu.Lock()
	sess := w.sess
	w.sess = nil
	code := w.exitCode
	w.mu.Unlock()
	sess.Close()
	slog.Debug("worker exiting", "channel", "headless", "code", code)
	return code
}

// readLoop decodes stdin lines and enqueues them. Malformed lines are
// answered directly so one bad frame never stalls the stream.
func (w *Worker) readLoop() {
	scanner := bufio.NewScanner(w.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if w.isStopped() {
			return
		}
		req, err := protocol.DecodeRequest(line)
		if err != nil {
			w.writeFrame(protocol.NewErrorResult("unknown", err.Error()))
			continue
		}
		w.enqueue(req)
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("stdin read error", "channel", "headless", "error", err)
	}
	w.mu.Lock()
	w.stdinClosed = true
	w.mu.Unlock()
	w.kickDispatch()
}

func (w *Worker) enqueue(req *protocol.Request) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, req)
	w.mu.Unlock()
	w.kickDispatch()
}

func (w *Worker) kickDispatch() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *Worker) dispatchLoop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.kick:
		}
		for {
			req, ok := w.pop()
			if !ok {
				break
			}
			w.handle(req)
		}
	}
}

// pop takes the queue head. With the queue empty it reports false and, once
// stdin is done, stops the worker with exit code 0.
func (w *Worker) pop() (*protocol.Request, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil, false
	}
	if len(w.queue) > 0 {
		req := w.queue[0]
		w.queue = w.queue[1:]
		return req, true
	}
	if w.stdinClosed {
		w.stopLocked(0)
	}
	return nil, false
}

func (w *Worker) handle(req *protocol.Request) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("request handler panic", "channel", "headless", "type", req.Type, "panic", r)
			w.writeFrame(protocol.NewErrorResult(req.ID, fmt.Sprintf("internal error: %v", r)))
			w.exitNow(1)
		}
	}()

	slog.Debug("handling request", "channel", "headless", "type", req.Type, "id", req.ID)
	switch req.Type {
	case protocol.RequestInit:
		w.handleInit(req)
	case protocol.RequestSend:
		w.handleSend(req)
	case protocol.RequestStatus:
		w.handleStatus(req)
	case protocol.RequestShutdown:
		w.handleShutdown(req)
	case protocol.RequestCancel:
		w.handleCancel(req)
	default:
		w.writeFrame(protocol.NewErrorResult(req.ID, "Unknown request type: "+req.Type))
	}
}

func (w *Worker) handleInit(req *protocol.Request) {
	if req.ProtocolVersion != "" {
		switch w.compatWith(req.ProtocolVersion) {
		case protocol.CompatIncompatible:
			w.writeFrame(protocol.NewErrorResult(req.ID, "protocol_version_mismatch"))
			w.exitNow(1)
			return
		case protocol.CompatMinorDiffers:
			slog.Debug("protocol minor version differs",
				"channel", "headless", "ours", w.version, "theirs", req.ProtocolVersion)
		}
	}

	cfg := protocol.InitConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}
	sess, err := w.create(w.runCtx, cfg)
	if err != nil {
		w.writeFrame(protocol.NewErrorResult(req.ID, err.Error()))
		return
	}

	// Re-init replaces the session wholesale; the journal of the old one
	// stays on disk.
	w.mu.Lock()
	old := w.sess
	w.sess = sess
	w.mu.Unlock()
	old.Close()

	slog.Debug("session initialized", "channel", "headless", "session_id", sess.ID, "model", sess.Model)
	w.writeFrame(protocol.NewInitOK(req.ID, sess.ID, w.version))
}

// compatWith compares the peer's protocol version against ours. Versions
// that do not parse cannot be negotiated and count as incompatible.
func (w *Worker) compatWith(theirs string) protocol.Compatibility {
	ourV, err := protocol.ParseVersion(w.version)
	if err != nil {
		return protocol.CompatIncompatible
	}
	theirV, err := protocol.ParseVersion(theirs)
	if err != nil {
		return protocol.CompatIncompatible
	}
	return protocol.CheckCompatibility(ourV, theirV)
}

func (w *Worker) handleSend(req *protocol.Request) {
	w.mu.Lock()
	if w.sess == nil {
		w.mu.Unlock()
		w.writeFrame(protocol.NewErrorResult(req.ID, "Not initialized. Send 'init' first."))
		return
	}
	if w.activeID != "" {
		w.mu.Unlock()
		w.writeFrame(protocol.NewErrorResult(req.ID, "A send is already in progress."))
		return
	}
	w.activeID = req.ID
	w.cancelTarget = ""
	sess := w.sess
	w.mu.Unlock()

	res := w.runSend(req, sess)
	w.writeFrame(res)

	w.mu.Lock()
	w.activeID = ""
	w.cancelTarget = ""
	w.mu.Unlock()
}

func (w *Worker) handleStatus(req *protocol.Request) {
	w.mu.Lock()
	sess := w.sess
	active := w.activeID != ""
	w.mu.Unlock()
	if sess == nil {
		w.writeFrame(protocol.NewErrorResult(req.ID, "Not initialized. Send 'init' first."))
		return
	}
	w.writeFrame(&protocol.StatusOKResponse{
		Type:          protocol.ResponseStatusOK,
		ID:            req.ID,
		Model:         sess.Model,
		MessagesCount: len(sess.Conversation),
		SessionID:     sess.ID,
		Active:        active,
	})
}

func (w *Worker) handleShutdown(req *protocol.Request) {
	w.writeFrame(&protocol.ShutdownOK{Type: protocol.ResponseShutdownOK, ID: req.ID})
	w.exitNow(0)
}

// handleCancel covers cancels dequeued outside an active send; during one,
// the event pump consumes matching cancels straight off the queue.
func (w *Worker) handleCancel(req *protocol.Request) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeID != "" && req.TargetID == w.activeID {
		w.cancelTarget = w.activeID
		return
	}
	slog.Debug("dropping cancel for inactive target", "channel", "headless", "target_id", req.TargetID)
}

// cancelRequested reports whether the active send should stop: either its
// cancel flag is set, or a cancel naming it is waiting in the queue (which
// is then consumed).
func (w *Worker) cancelRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeID == "" {
		return false
	}
	if w.cancelTarget == w.activeID {
		return true
	}
	for i, req := range w.queue {
		if req.Type == protocol.RequestCancel && req.TargetID == w.activeID {
			w.queue = append(w.queue[:i], w.queue[i+1:]...)
			w.cancelTarget = w.activeID
			return true
		}
	}
	return false
}

func (w *Worker) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *Worker) exitNow(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked(code)
}

func (w *Worker) stopLocked(code int) {
	if w.stopped {
		return
	}
	w.stopped = true
	w.exitCode = code
	close(w.done)
}

// writeFrame marshals one response frame and writes it as a line. Protocol
// frames are the only writes on w.out; logs go elsewhere.
func (w *Worker) writeFrame(v any) error {
	payload, err := protocol.EncodeResponse(v)
	if err != nil {
		slog.Error("encode frame failed", "channel", "headless", "error", err)
		return err
	}
	w.outMu.Lock()
	defer w.outMu.Unlock()
	_, err = w.out.Write(append(payload, '\n'))
	return err
}
