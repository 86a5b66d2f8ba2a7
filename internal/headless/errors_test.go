package headless

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/heddlehq/heddle/internal/provider"
	"github.com/heddlehq/heddle/internal/tools"
)

func TestNormalizeProviderError(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantMessage string
		wantDetails any
	}{
		{
			name:        "error object with message",
			body:        `{"error":{"message":"Model error","code":500}}`,
			wantMessage: "Model error",
			wantDetails: map[string]any{"error": map[string]any{"message": "Model error", "code": float64(500)}},
		},
		{
			name:        "error as plain string",
			body:        `{"error":"overloaded"}`,
			wantMessage: "overloaded",
			wantDetails: map[string]any{"error": "overloaded"},
		},
		{
			name:        "object without error key",
			body:        `{"status":"degraded"}`,
			wantMessage: "Provider error",
			wantDetails: map[string]any{"status": "degraded"},
		},
		{
			name:        "json string body",
			body:        `"slow down"`,
			wantMessage: "slow down",
			wantDetails: "slow down",
		},
		{
			name:        "non-json body",
			body:        "upstream exploded",
			wantMessage: "upstream exploded",
			wantDetails: "upstream exploded",
		},
		{
			name:        "empty body",
			body:        "",
			wantMessage: "Provider error",
			wantDetails: nil,
		},
	}
	for _, tc := range cases {
		err := &provider.HTTPError{Provider: "Openrouter", Status: 500, Body: tc.body}
		n := normalizeError(err)
		if n.Code != "provider_error" {
			t.Errorf("%s: code = %q", tc.name, n.Code)
		}
		if n.Provider != "openrouter" {
			t.Errorf("%s: provider = %q", tc.name, n.Provider)
		}
		if n.Message != tc.wantMessage {
			t.Errorf("%s: message = %q, want %q", tc.name, n.Message, tc.wantMessage)
		}
		if !reflect.DeepEqual(n.Details, tc.wantDetails) {
			t.Errorf("%s: details = %#v, want %#v", tc.name, n.Details, tc.wantDetails)
		}
	}
}

func TestNormalizeUnparseableProviderMessage(t *testing.T) {
	// Mentions a provider failure but no longer carries the standard shape.
	err := errors.New("API error (weird)")
	n := normalizeError(err)
	if n.Code != "provider_error" || n.Message != "Provider error" {
		t.Errorf("normalized = %+v", n)
	}
	if n.Details != "API error (weird)" {
		t.Errorf("details = %v, want raw message", n.Details)
	}
}

func TestNormalizeErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unknown tool", fmt.Errorf("%w: frobnicate", tools.ErrUnknownTool), "tool_error"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"wrapped deadline", fmt.Errorf("request: %w", context.DeadlineExceeded), "timeout"},
		{"anything else", errors.New("boom"), "protocol_error"},
	}
	for _, tc := range cases {
		n := normalizeError(tc.err)
		if n.Code != tc.want {
			t.Errorf("%s: code = %q, want %q", tc.name, n.Code, tc.want)
		}
		if n.Message != tc.err.Error() {
			t.Errorf("%s: message = %q, want the error text", tc.name, n.Message)
		}
		if n.Provider != "" || n.Details != nil {
			t.Errorf("%s: provider/details should stay empty: %+v", tc.name, n)
		}
	}
}

func TestNormalizedEvent(t *testing.T) {
	n := normalized{Message: "m", Code: "provider_error", Provider: "p", Details: "d"}
	ev := n.event()
	if ev.Event != "error" || ev.Error != "m" || ev.Code != "provider_error" || ev.Provider != "p" || ev.Details != "d" {
		t.Errorf("event = %+v", ev)
	}
}
