package protocol

import "unicode/utf8"

// Worker event names, emitted between a send request and its result.
const (
	EventContentDelta = "content_delta"
	EventToolStart    = "tool_start"
	EventToolEnd      = "tool_end"
	EventUsage        = "usage"
	EventError        = "error"
)

// ResultPreviewMax caps the result_preview field of tool_end events.
const ResultPreviewMax = 500

// ContentDeltaEvent carries one textual fragment of the assistant reply.
type ContentDeltaEvent struct {
	Event string `json:"event"` // always "content_delta"
	Text  string `json:"text"`
}

// ToolStartEvent announces a tool invocation. Args holds the parsed JSON
// arguments, or an empty object when they did not parse.
type ToolStartEvent struct {
	Event string `json:"event"` // always "tool_start"
	Name  string `json:"name"`
	Args  any    `json:"args"`
}

// ToolEndEvent reports a completed tool invocation with a bounded preview of
// its result.
type ToolEndEvent struct {
	Event         string `json:"event"` // always "tool_end"
	Name          string `json:"name"`
	ResultPreview string `json:"result_preview"`
}

// UsageEvent reports provider token accounting for one remote call.
type UsageEvent struct {
	Event            string `json:"event"` // always "usage"
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// ErrorEvent reports a normalized failure.
type ErrorEvent struct {
	Event    string `json:"event"` // always "error"
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Provider string `json:"provider,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// NewContentDelta creates a content_delta event.
func NewContentDelta(text string) *ContentDeltaEvent {
	return &ContentDeltaEvent{Event: EventContentDelta, Text: text}
}

// NewToolStart creates a tool_start event. A nil args is emitted as {}.
func NewToolStart(name string, args any) *ToolStartEvent {
	if args == nil {
		args = map[string]any{}
	}
	return &ToolStartEvent{Event: EventToolStart, Name: name, Args: args}
}

// NewToolEnd creates a tool_end event, truncating the preview to
// ResultPreviewMax.
func NewToolEnd(name, result string) *ToolEndEvent {
	return &ToolEndEvent{Event: EventToolEnd, Name: name, ResultPreview: Preview(result)}
}

// NewUsage creates a usage event.
func NewUsage(u Usage) *UsageEvent {
	return &UsageEvent{
		Event:            EventUsage,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// Preview truncates s to ResultPreviewMax bytes, backing off so the cut
// never splits a UTF-8 sequence.
func Preview(s string) string {
	if len(s) <= ResultPreviewMax {
		return s
	}
	end := ResultPreviewMax
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
