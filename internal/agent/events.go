// Package agent drives one conversation against the provider, executing
// tool calls between completions until the model stops asking for them.
package agent

import "github.com/heddlehq/heddle/internal/provider"

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventContentDelta     EventKind = "content_delta"
	EventAssistantMessage EventKind = "assistant_message"
	EventToolStart        EventKind = "tool_start"
	EventToolEnd          EventKind = "tool_end"
	EventUsage            EventKind = "usage"
	EventLoopDetected     EventKind = "loop_detected"
	EventError            EventKind = "error"
)

// Event is one element of the loop's event sequence. Only the fields
// belonging to Kind are set.
type Event struct {
	Kind    EventKind
	Delta   string             // content_delta
	Message *provider.Message  // assistant_message
	Call    *provider.ToolCall // tool_start, tool_end
	Result  string             // tool_end
	Usage   *provider.Usage    // usage
	Count   int                // loop_detected
	Err     string             // error
}

// Sink receives loop events in emission order. A non-nil return aborts the
// run and is returned from Run unchanged; the loop performs no further
// provider or tool calls after an aborted emit.
type Sink func(Event) error
