package agent

import (
	"testing"

	"github.com/heddlehq/heddle/internal/provider"
)

func call(name, args string) provider.ToolCall {
	return provider.ToolCall{
		ID:       "c",
		Type:     "function",
		Function: provider.ToolCallFunction{Name: name, Arguments: args},
	}
}

func TestFingerprintNormalizesFormatting(t *testing.T) {
	a := fingerprint([]provider.ToolCall{call("read", `{"path":"a.txt","limit":3}`)})
	b := fingerprint([]provider.ToolCall{call("read", `{ "path": "a.txt",  "limit": 3 }`)})
	if a != b {
		t.Errorf("formatting variants should match: %q vs %q", a, b)
	}
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	a := fingerprint([]provider.ToolCall{call("read", `{"path":"a.txt"}`)})
	b := fingerprint([]provider.ToolCall{call("read", `{"path":"b.txt"}`)})
	if a == b {
		t.Error("different arguments should not match")
	}
}

func TestFingerprintRawFallback(t *testing.T) {
	got := fingerprint([]provider.ToolCall{call("read", `{broken`)})
	if got != "read:{broken" {
		t.Errorf("unparseable arguments should compare raw, got %q", got)
	}
}

func TestFingerprintJoinsCallsInOrder(t *testing.T) {
	got := fingerprint([]provider.ToolCall{
		call("alpha", `{}`),
		call("beta", `{"n":1}`),
	})
	if got != `alpha:{}|beta:{"n":1}` {
		t.Errorf("unexpected joined fingerprint: %q", got)
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if got := fingerprint(nil); got != "" {
		t.Errorf("no calls should fingerprint empty, got %q", got)
	}
}

func TestWindowBelowThreshold(t *testing.T) {
	w := &window{threshold: 3}
	w.push("x")
	w.push("x")
	if w.looping() {
		t.Error("two identical entries must not trip a threshold of three")
	}
}

func TestWindowFullIdentical(t *testing.T) {
	w := &window{threshold: 3}
	for i := 0; i < 3; i++ {
		w.push("x")
	}
	if !w.looping() {
		t.Error("three identical entries should trip")
	}
}

func TestWindowFullMixed(t *testing.T) {
	w := &window{threshold: 3}
	w.push("x")
	w.push("y")
	w.push("x")
	if w.looping() {
		t.Error("mixed window must not trip")
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := &window{threshold: 3}
	w.push("old")
	w.push("x")
	w.push("x")
	if w.looping() {
		t.Fatal("window still holds the old entry")
	}
	w.push("x")
	if !w.looping() {
		t.Error("after eviction the window is all identical and should trip")
	}
	if len(w.entries) != 3 {
		t.Errorf("window should hold at most 3 entries, got %d", len(w.entries))
	}
}
