// Package protocol defines the line-delimited JSON wire format spoken by the
// heddle headless worker on stdin/stdout. This package is importable by
// controllers embedding the worker.
package protocol

// Request types
const (
	RequestInit     = "init"
	RequestSend     = "send"
	RequestStatus   = "status"
	RequestShutdown = "shutdown"
	RequestCancel   = "cancel"
)

// Response types
const (
	ResponseInitOK     = "init_ok"
	ResponseEvent      = "event"
	ResponseResult     = "result"
	ResponseStatusOK   = "status_ok"
	ResponseShutdownOK = "shutdown_ok"
)

// Result statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is one controller request. The union of fields across all request
// types; which fields are meaningful depends on Type.
type Request struct {
	Type            string      `json:"type"`
	ID              string      `json:"id"`
	ProtocolVersion string      `json:"protocol_version,omitempty"` // init
	Config          *InitConfig `json:"config,omitempty"`           // init
	Message         string      `json:"message,omitempty"`          // send
	TargetID        string      `json:"target_id,omitempty"`        // cancel
}

// InitConfig carries session parameters on an init request.
type InitConfig struct {
	Model         string   `json:"model,omitempty"`
	SystemPrompt  string   `json:"system_prompt,omitempty"`
	Tools         []string `json:"tools,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
}

// InitOK acknowledges a successful init. Error is reserved in the wire shape
// for non-fatal notices; the worker reports init failures as error results.
type InitOK struct {
	Type            string `json:"type"` // always "init_ok"
	ID              string `json:"id"`
	SessionID       string `json:"session_id"`
	ProtocolVersion string `json:"protocol_version"`
	Error           string `json:"error,omitempty"`
}

// Result closes a send (or reports a request-level failure). ToolCallsMade
// and Iterations are always present, even on errors.
type Result struct {
	Type          string           `json:"type"` // always "result"
	ID            string           `json:"id"`
	Status        string           `json:"status"` // "ok" | "error"
	Response      string           `json:"response,omitempty"`
	ToolCallsMade []ToolCallRecord `json:"tool_calls_made"`
	Usage         *Usage           `json:"usage,omitempty"`
	Iterations    int              `json:"iterations"`
	Error         string           `json:"error,omitempty"`
	Code          string           `json:"code,omitempty"`
	Provider      string           `json:"provider,omitempty"`
	Details       any              `json:"details,omitempty"`
}

// ToolCallRecord summarizes one tool invocation for the terminal result.
type ToolCallRecord struct {
	Name string `json:"name"`
	Args any    `json:"args"`
}

// Usage aggregates token counts reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StatusOKResponse answers a status request.
type StatusOKResponse struct {
	Type          string `json:"type"` // always "status_ok"
	ID            string `json:"id"`
	Model         string `json:"model"`
	MessagesCount int    `json:"messages_count"`
	SessionID     string `json:"session_id"`
	Active        bool   `json:"active"`
}

// ShutdownOK acknowledges a shutdown request.
type ShutdownOK struct {
	Type string `json:"type"` // always "shutdown_ok"
	ID   string `json:"id"`
}

// EventFrame wraps a worker event for transmission.
type EventFrame struct {
	Type  string `json:"type"` // always "event"
	Event any    `json:"event"`
}

// NewResult creates a result frame with ToolCallsMade initialized so the
// field marshals as [] rather than null.
func NewResult(id, status string) *Result {
	return &Result{
		Type:          ResponseResult,
		ID:            id,
		Status:        status,
		ToolCallsMade: []ToolCallRecord{},
	}
}

// NewErrorResult creates an error result frame.
func NewErrorResult(id, message string) *Result {
	r := NewResult(id, StatusError)
	r.Error = message
	return r
}

// NewInitOK creates an init acknowledgement frame.
func NewInitOK(id, sessionID, protocolVersion string) *InitOK {
	return &InitOK{
		Type:            ResponseInitOK,
		ID:              id,
		SessionID:       sessionID,
		ProtocolVersion: protocolVersion,
	}
}

// NewEventFrame wraps a worker event.
func NewEventFrame(event any) *EventFrame {
	return &EventFrame{Type: ResponseEvent, Event: event}
}
