package protocol

// Error codes carried on error events and error results.
const (
	CodeProviderError = "provider_error"
	CodeToolError     = "tool_error"
	CodeProtocolError = "protocol_error"
	CodeLoopDetected  = "loop_detected"
	CodeTimeout       = "timeout"
)

// ErrorLabel returns the user-facing label for an error code, used when a
// provider response carries no better message.
func ErrorLabel(code string) string {
	switch code {
	case CodeProviderError:
		return "Provider error"
	case CodeToolError:
		return "Tool error"
	case CodeProtocolError:
		return "Protocol error"
	case CodeLoopDetected:
		return "Doom loop detected"
	case CodeTimeout:
		return "Timeout"
	default:
		return "Error"
	}
}
