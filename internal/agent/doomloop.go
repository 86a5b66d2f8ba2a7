package agent

import (
	"encoding/json"
	"strings"

	"github.com/heddlehq/heddle/internal/provider"
)

// fingerprint reduces one iteration's tool calls to a comparable string:
// "<name>:<normalizedArgs>" per call, joined with "|" in call order.
func fingerprint(calls []provider.ToolCall) string {
	parts := make([]string, len(calls))
	for i, call := range calls {
		parts[i] = call.Function.Name + ":" + normalizeArgs(call.Function.Arguments)
	}
	return strings.Join(parts, "|")
}

// normalizeArgs reserializes arguments through JSON so formatting
// differences do not defeat the comparison. Arguments that do not parse
// are compared raw.
func normalizeArgs(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return string(out)
}

// window holds the most recent iteration fingerprints, at most threshold.
type window struct {
	entries   []string
	threshold int
}

func (w *window) push(fp string) {
	w.entries = append(w.entries, fp)
	if len(w.entries) > w.threshold {
		w.entries = w.entries[1:]
	}
}

// looping reports whether the window is full and every entry is byte-equal.
func (w *window) looping() bool {
	if len(w.entries) < w.threshold {
		return false
	}
	for _, e := range w.entries[1:] {
		if e != w.entries[0] {
			return false
		}
	}
	return true
}
