// Package repl drives the interactive chat loop: one line of input, one
// streamed answer. Prompts and tool activity go to stderr so stdout stays
// clean for the answer text.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/heddlehq/heddle/internal/agent"
	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/instructions"
	"github.com/heddlehq/heddle/internal/session"
	"github.com/heddlehq/heddle/internal/tracing"
)

// REPL owns one session at a time and replaces it on /new. Streams are
// swappable so tests can script a whole conversation.
type REPL struct {
	In        io.Reader
	Out       io.Writer // answer text
	Err       io.Writer // prompts, tool activity, diagnostics
	Options   session.CreateOptions
	Collector *tracing.Collector

	mu           sync.Mutex
	pendingModel string // set by the config watcher, applied on the next send
}

func New(opts session.CreateOptions) *REPL {
	return &REPL{In: os.Stdin, Out: os.Stdout, Err: os.Stderr, Options: opts}
}

// Once sends a single message and prints the final answer, for
// `heddle chat <message>`.
func (r *REPL) Once(ctx context.Context, message string) error {
	sess, err := session.Create(ctx, r.Options)
	if err != nil {
		return err
	}
	defer sess.Close()

	text, streamed, err := r.send(ctx, sess, message)
	if err != nil {
		return err
	}
	if streamed {
		fmt.Fprintln(r.Out)
	} else {
		fmt.Fprintln(r.Out, text)
	}
	return nil
}

// Run reads lines until EOF, "exit", or /quit. Slash commands are handled
// locally; everything else goes to the model.
func (r *REPL) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	sess, err := session.Create(ctx, r.Options)
	if err != nil {
		return err
	}
	defer func() { sess.Close() }()

	watcher := r.watch(ctx, sess)
	defer func() {
		if watcher != nil {
			watcher.Stop()
		}
	}()

	cfgWatcher := r.watchConfig(sess.Cwd)
	if cfgWatcher != nil {
		defer cfgWatcher.Stop()
	}

	fmt.Fprintf(r.Err, "\nheddle chat (model: %s)\n", sess.Model)
	fmt.Fprintf(r.Err, "Session: %s\n", sess.ID)
	fmt.Fprintf(r.Err, "Type \"exit\" to quit, \"/new\" for a new session\n\n")

	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if ctx.Err() != nil {
			fmt.Fprintln(r.Err, "\nGoodbye!")
			return nil
		}
		fmt.Fprint(r.Err, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(r.Err, "Goodbye!")
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Err, "Goodbye!")
			return nil
		}
		if strings.HasPrefix(input, "/") {
			next, quit := r.command(ctx, sess, input)
			if quit {
				fmt.Fprintln(r.Err, "Goodbye!")
				return nil
			}
			if next != sess {
				if watcher != nil {
					watcher.Stop()
				}
				sess.Close()
				sess = next
				watcher = r.watch(ctx, sess)
			}
			continue
		}

		text, streamed, err := r.send(ctx, sess, input)
		switch {
		case err != nil && ctx.Err() != nil:
			fmt.Fprintln(r.Err, "\nGoodbye!")
			return nil
		case err != nil:
			fmt.Fprintf(r.Err, "Error: %v\n\n", err)
		case streamed:
			fmt.Fprint(r.Out, "\n\n")
		case text != "":
			fmt.Fprintf(r.Out, "\n%s\n\n", text)
		default:
			fmt.Fprintln(r.Err, "(no response)")
		}
	}
}

// send runs one round of the agent loop, streaming deltas to Out as they
// arrive. The returned text is the final assistant message, for callers that
// need the unstreamed fallback.
func (r *REPL) send(ctx context.Context, sess *session.Session, message string) (string, bool, error) {
	r.applyConfigChanges(sess)
	sess.RefreshInstructions()
	if err := sess.AppendUser(message); err != nil {
		return "", false, err
	}
	base := len(sess.Conversation)

	var (
		streamed bool
		last     string
	)
	loop := agent.New(sess.Client, sess.Registry, &sess.Conversation, agent.Options{
		MaxIterations: sess.MaxIterations,
	})
	span := r.startSpan(sess)
	runErr := loop.RunStream(ctx, func(ev agent.Event) error {
		switch ev.Kind {
		case agent.EventContentDelta:
			streamed = true
			fmt.Fprint(r.Out, ev.Delta)
		case agent.EventAssistantMessage:
			if ev.Message != nil {
				last = ev.Message.Text()
			}
		case agent.EventToolStart:
			if ev.Call != nil {
				fmt.Fprintf(r.Err, "  [tool] %s\n", ev.Call.Function.Name)
			}
		case agent.EventToolEnd:
			if ev.Call != nil && strings.HasPrefix(ev.Result, "Error:") {
				fmt.Fprintf(r.Err, "  [tool] %s -> error\n", ev.Call.Function.Name)
			}
		case agent.EventLoopDetected:
			fmt.Fprintf(r.Err, "  [loop] stopped after %d identical tool calls\n", ev.Count)
		case agent.EventError:
			fmt.Fprintf(r.Err, "Error: %s\n", ev.Err)
		}
		return nil
	})

	if err := sess.JournalFrom(base); err != nil {
		slog.Warn("journal flush failed", "channel", "session", "error", err)
	}
	sess.Touch()
	r.finishSpan(span, runErr, streamed)

	return last, streamed, runErr
}

// command handles one slash command, returning the session to continue with
// (a fresh one for /new) and whether to quit.
func (r *REPL) command(ctx context.Context, sess *session.Session, input string) (*session.Session, bool) {
	args, err := shellwords.Parse(strings.TrimPrefix(input, "/"))
	if err != nil {
		fmt.Fprintf(r.Err, "Bad command: %v\n\n", err)
		return sess, false
	}
	if len(args) == 0 {
		return sess, false
	}
	switch args[0] {
	case "quit", "exit":
		return sess, true
	case "new":
		next, err := session.Create(ctx, r.Options)
		if err != nil {
			fmt.Fprintf(r.Err, "New session failed: %v\n\n", err)
			return sess, false
		}
		fmt.Fprintf(r.Err, "New session: %s\n\n", next.ID)
		return next, false
	case "model":
		if len(args) < 2 {
			fmt.Fprint(r.Err, "Usage: /model <name>\n\n")
			return sess, false
		}
		sess.SwitchModel(args[1])
		// An explicit /model wins over a pending config edit.
		r.mu.Lock()
		r.pendingModel = ""
		r.mu.Unlock()
		fmt.Fprintf(r.Err, "Model: %s\n\n", sess.Model)
		return sess, false
	case "tools":
		for _, name := range sess.Registry.Names() {
			tool, ok := sess.Registry.Get(name)
			if !ok {
				continue
			}
			fmt.Fprintf(r.Err, "  %-12s %s\n", name, firstLine(tool.Description()))
		}
		fmt.Fprintln(r.Err)
		return sess, false
	case "session":
		fmt.Fprintf(r.Err, "  id:       %s\n", sess.ID)
		fmt.Fprintf(r.Err, "  model:    %s\n", sess.Model)
		fmt.Fprintf(r.Err, "  cwd:      %s\n", sess.Cwd)
		if sess.Journal != nil {
			fmt.Fprintf(r.Err, "  journal:  %s\n", sess.Journal.Path())
		}
		fmt.Fprintf(r.Err, "  messages: %d\n\n", len(sess.Conversation))
		return sess, false
	default:
		fmt.Fprintf(r.Err, "Unknown command: /%s\n\n", args[0])
		return sess, false
	}
}

// watchConfig starts the layered-config watcher. Handlers fire on the
// watcher's goroutine, so the change is parked and applied by send on the
// REPL's own goroutine.
func (r *REPL) watchConfig(cwd string) *config.Watcher {
	w, err := config.NewWatcher(cwd)
	if err != nil {
		slog.Debug("config watcher unavailable", "channel", "config", "error", err)
		return nil
	}
	w.OnChange(func(cfg *config.Config) {
		r.mu.Lock()
		r.pendingModel = cfg.Model
		r.mu.Unlock()
	})
	if err := w.Start(); err != nil {
		slog.Debug("config watcher start failed", "channel", "config", "error", err)
		w.Stop()
		return nil
	}
	return w
}

// applyConfigChanges switches the session to a model picked up from a config
// edit since the last send.
func (r *REPL) applyConfigChanges(sess *session.Session) {
	r.mu.Lock()
	model := r.pendingModel
	r.pendingModel = ""
	r.mu.Unlock()
	if model == "" || model == sess.Model {
		return
	}
	sess.SwitchModel(model)
	fmt.Fprintf(r.Err, "  [config] model -> %s\n", model)
}

// watch starts the instructions watcher so edits to AGENTS.md or skill files
// reach the system prompt on the next send.
func (r *REPL) watch(ctx context.Context, sess *session.Session) *instructions.Watcher {
	loader := sess.Instructions()
	if loader == nil {
		return nil
	}
	w, err := instructions.NewWatcher(loader)
	if err != nil {
		slog.Debug("instructions watcher unavailable", "channel", "session", "error", err)
		return nil
	}
	if err := w.Start(ctx); err != nil {
		slog.Debug("instructions watcher start failed", "channel", "session", "error", err)
		return nil
	}
	return w
}

func (r *REPL) startSpan(sess *session.Session) *tracing.Span {
	if r.Collector == nil {
		return nil
	}
	span := tracing.StartSpan(uuid.New(), uuid.Nil, tracing.KindSend, "send")
	span.SetAttr("session_id", sess.ID)
	span.SetAttr("model", sess.Model)
	return &span
}

func (r *REPL) finishSpan(span *tracing.Span, runErr error, streamed bool) {
	if span == nil {
		return
	}
	span.Finish(runErr)
	span.SetAttr("streamed", fmt.Sprintf("%t", streamed))
	r.Collector.Emit(*span)
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
