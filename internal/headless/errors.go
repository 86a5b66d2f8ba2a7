package headless

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/heddlehq/heddle/internal/provider"
	"github.com/heddlehq/heddle/internal/tools"
	"github.com/heddlehq/heddle/pkg/protocol"
)

// providerErrRe takes provider.HTTPError messages back apart:
// "<vendor> API error (<status>): <body>".
var providerErrRe = regexp.MustCompile(`^(.+?)\s+API error\s+\((\d+)\):\s*([\s\S]*)$`)

// normalized is the controller-facing shape of a run failure: one message, a
// stable code, and, for provider failures, the vendor and raw details. It
// fills both the worker error event and the terminal result.
type normalized struct {
	Message  string
	Code     string
	Provider string
	Details  any
}

func (n normalized) event() *protocol.ErrorEvent {
	return &protocol.ErrorEvent{
		Event:    protocol.EventError,
		Error:    n.Message,
		Code:     n.Code,
		Provider: n.Provider,
		Details:  n.Details,
	}
}

// normalizeError flattens an error propagating out of the agent loop or
// session setup. Provider HTTP failures are recognized by message shape so
// wrapped and re-stringified errors normalize the same way.
func normalizeError(err error) normalized {
	text := err.Error()

	if m := providerErrRe.FindStringSubmatch(text); m != nil {
		n := normalized{
			Code:     protocol.CodeProviderError,
			Provider: strings.ToLower(m[1]),
		}
		if raw := strings.TrimSpace(m[3]); raw != "" {
			var parsed any
			if json.Unmarshal([]byte(raw), &parsed) == nil {
				n.Details = parsed
			} else {
				n.Details = raw
			}
		}
		n.Message = detailMessage(n.Details, n.Code)
		return n
	}

	if strings.Contains(text, "API error") {
		return normalized{
			Message: protocol.ErrorLabel(protocol.CodeProviderError),
			Code:    protocol.CodeProviderError,
			Details: text,
		}
	}

	code := protocol.CodeProtocolError
	var httpErr *provider.HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = protocol.CodeProviderError
	case errors.Is(err, tools.ErrUnknownTool):
		code = protocol.CodeToolError
	case errors.Is(err, context.DeadlineExceeded):
		code = protocol.CodeTimeout
	}
	return normalized{Message: text, Code: code}
}

// detailMessage picks the most specific human-readable message out of parsed
// provider details: .error.message, then .error as a string, then the details
// string itself, then the label for the code.
func detailMessage(details any, code string) string {
	switch d := details.(type) {
	case map[string]any:
		switch e := d["error"].(type) {
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if e != "" {
				return e
			}
		}
	case string:
		if s := strings.TrimSpace(d); s != "" {
			return s
		}
	}
	return protocol.ErrorLabel(code)
}
