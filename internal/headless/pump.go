package headless

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heddlehq/heddle/internal/agent"
	"github.com/heddlehq/heddle/internal/session"
	"github.com/heddlehq/heddle/internal/tracing"
	"github.com/heddlehq/heddle/pkg/protocol"
)

// errCancelled aborts the agent loop from inside the event pump when a
// cancel for the active send is observed.
var errCancelled = errors.New("send cancelled")

// pendingError is a failure reported by the loop as an event rather than an
// error; the run still ends normally and the result carries it.
type pendingError struct {
	message string
	code    string
}

// sendState accumulates one send's aggregates across pump events.
type sendState struct {
	toolCalls  []protocol.ToolCallRecord
	usage      *protocol.Usage
	iterations int
	sawDelta   bool
	last       string // content of the last assistant message
	candidate  string // last assistant content seen before any delta
	pending    *pendingError

	traceID   uuid.UUID
	rootID    uuid.UUID
	provStart time.Time
	toolStart time.Time
}

func newSendState() *sendState {
	return &sendState{toolCalls: []protocol.ToolCallRecord{}}
}

// runSend drives one send end to end and returns its terminal result. The
// caller owns activeID; everything between the user-message append and the
// journal flush happens here.
func (w *Worker) runSend(req *protocol.Request, sess *session.Session) *protocol.Result {
	st := newSendState()

	root := tracing.StartSpan(uuid.New(), uuid.Nil, tracing.KindSend, "send")
	root.SetAttr("request_id", req.ID)
	root.SetAttr("model", sess.Model)
	st.traceID = root.TraceID
	st.rootID = root.ID
	st.provStart = time.Now().UTC()

	if err := sess.AppendUser(req.Message); err != nil {
		return st.errorResult(req.ID, normalizeError(fmt.Errorf("journal user message: %w", err)))
	}
	base := len(sess.Conversation)

	var res *protocol.Result
	var runErr error
	if w.cancelRequested() {
		res = st.cancelledResult(req.ID)
	} else {
		loop := agent.New(sess.Client, sess.Registry, &sess.Conversation, agent.Options{
			MaxIterations: sess.MaxIterations,
		})
		runErr = loop.RunStream(w.runCtx, func(ev agent.Event) error {
			return w.pumpEvent(st, ev)
		})

		switch {
		case errors.Is(runErr, errCancelled):
			res = st.cancelledResult(req.ID)
		case runErr != nil:
			n := normalizeError(runErr)
			w.writeFrame(protocol.NewEventFrame(n.event()))
			res = st.errorResult(req.ID, n)
		case st.pending != nil:
			res = st.pendingResult(req.ID)
		default:
			res = st.okResult(req.ID)
		}
	}

	// Whatever the outcome, everything the loop appended is journaled
	// before the caller clears the active send.
	if err := sess.JournalFrom(base); err != nil {
		slog.Warn("journal flush failed", "channel", "headless", "error", err)
	}
	sess.Touch()

	if w.collector != nil {
		root.Finish(runErr)
		root.SetAttr("status", res.Status)
		root.SetAttr("iterations", fmt.Sprintf("%d", st.iterations))
		w.collector.Emit(root)
	}
	return res
}

// pumpEvent maps one agent event onto the wire, checking for cancellation
// first. A non-nil return aborts the loop.
func (w *Worker) pumpEvent(st *sendState, ev agent.Event) error {
	if w.cancelRequested() {
		return errCancelled
	}

	switch ev.Kind {
	case agent.EventContentDelta:
		st.sawDelta = true
		return w.writeFrame(protocol.NewEventFrame(protocol.NewContentDelta(ev.Delta)))

	case agent.EventAssistantMessage:
		st.iterations++
		text := ev.Message.Text()
		st.last = text
		if !st.sawDelta && text != "" {
			st.candidate = text
		}
		w.emitProviderSpan(st)
		return nil

	case agent.EventToolStart:
		args := parseArgs(ev.Call.Function.Arguments)
		st.toolCalls = append(st.toolCalls, protocol.ToolCallRecord{
			Name: ev.Call.Function.Name,
			Args: args,
		})
		st.toolStart = time.Now().UTC()
		return w.writeFrame(protocol.NewEventFrame(protocol.NewToolStart(ev.Call.Function.Name, args)))

	case agent.EventToolEnd:
		w.emitToolSpan(st, ev.Call.Function.Name, ev.Result)
		st.provStart = time.Now().UTC()
		return w.writeFrame(protocol.NewEventFrame(protocol.NewToolEnd(ev.Call.Function.Name, ev.Result)))

	case agent.EventUsage:
		st.usage = &protocol.Usage{
			PromptTokens:     ev.Usage.PromptTokens,
			CompletionTokens: ev.Usage.CompletionTokens,
			TotalTokens:      ev.Usage.TotalTokens,
		}
		return w.writeFrame(protocol.NewEventFrame(protocol.NewUsage(*st.usage)))

	case agent.EventLoopDetected:
		msg := fmt.Sprintf("Doom loop detected: %d iterations", ev.Count)
		st.pending = &pendingError{message: msg, code: protocol.CodeLoopDetected}
		return w.writeFrame(protocol.NewEventFrame(&protocol.ErrorEvent{
			Event: protocol.EventError,
			Error: msg,
			Code:  protocol.CodeLoopDetected,
		}))

	case agent.EventError:
		st.pending = &pendingError{message: ev.Err}
		return w.writeFrame(protocol.NewEventFrame(&protocol.ErrorEvent{
			Event: protocol.EventError,
			Error: ev.Err,
		}))
	}
	return nil
}

func (w *Worker) emitProviderSpan(st *sendState) {
	if w.collector == nil {
		return
	}
	sp := tracing.StartSpan(st.traceID, st.rootID, tracing.KindProviderCall, "chat_completion")
	sp.Start = st.provStart
	sp.SetAttr("iteration", fmt.Sprintf("%d", st.iterations))
	sp.Finish(nil)
	w.collector.Emit(sp)
}

func (w *Worker) emitToolSpan(st *sendState, name, result string) {
	if w.collector == nil {
		return
	}
	sp := tracing.StartSpan(st.traceID, st.rootID, tracing.KindToolCall, name)
	if !st.toolStart.IsZero() {
		sp.Start = st.toolStart
	}
	sp.SetAttr("preview", tracing.Preview(result))
	sp.Finish(nil)
	if strings.HasPrefix(result, "Error:") {
		sp.Status = "error"
	}
	w.collector.Emit(sp)
}

// parseArgs parses tool-call arguments for the controller's benefit. The
// registry re-parses independently; arguments that are not a JSON object
// surface here as {}.
func parseArgs(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func (st *sendState) result(id, status string) *protocol.Result {
	res := protocol.NewResult(id, status)
	res.ToolCallsMade = st.toolCalls
	res.Iterations = st.iterations
	return res
}

// okResult builds the success result. With streamed deltas the response is
// whatever the last assistant message said; otherwise it is the last
// assistant content that had any text.
func (st *sendState) okResult(id string) *protocol.Result {
	res := st.result(id, protocol.StatusOK)
	if st.sawDelta {
		res.Response = st.last
	} else {
		res.Response = st.candidate
	}
	res.Usage = st.usage
	return res
}

func (st *sendState) cancelledResult(id string) *protocol.Result {
	res := st.result(id, protocol.StatusError)
	res.Error = "cancelled"
	return res
}

// pendingResult closes a run that finished its event sequence with a loop
// anomaly: the usage cache is kept, the response is not.
func (st *sendState) pendingResult(id string) *protocol.Result {
	res := st.result(id, protocol.StatusError)
	res.Error = st.pending.message
	res.Code = st.pending.code
	res.Usage = st.usage
	return res
}

func (st *sendState) errorResult(id string, n normalized) *protocol.Result {
	res := st.result(id, protocol.StatusError)
	res.Error = n.Message
	res.Code = n.Code
	res.Provider = n.Provider
	res.Details = n.Details
	return res
}
