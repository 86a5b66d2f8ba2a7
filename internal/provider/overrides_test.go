package provider

import (
	"reflect"
	"testing"
)

func TestValidateOverridesKeeps(t *testing.T) {
	in := map[string]any{
		"model":             "anthropic/claude-sonnet-4",
		"temperature":       0.7,
		"max_tokens":        float64(4096),
		"top_p":             0.9,
		"seed":              42,
		"frequency_penalty": -0.5,
		"presence_penalty":  0.0,
		"stop":              []any{"END", "STOP"},
		"route":             "fallback",
		"models":            []any{"a", "b"},
		"session_id":        "abc",
		"response_format":   map[string]any{"type": "json_object"},
		"tool_choice":       "auto",
		"plugins":           []any{map[string]any{"id": "web"}},
		"provider":          map[string]any{"order": []any{"openai"}},
		"debug":             true,
	}
	out := ValidateOverrides(in)
	if len(out) != len(in) {
		t.Errorf("kept %d of %d keys: %v", len(out), len(in), out)
	}
}

func TestValidateOverridesDrops(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  any
	}{
		{"unknown key", "banana", 1},
		{"temperature too high", "temperature", 2.5},
		{"temperature negative", "temperature", -0.1},
		{"temperature string", "temperature", "hot"},
		{"max_tokens zero", "max_tokens", 0},
		{"max_tokens fractional", "max_tokens", 10.5},
		{"max_tokens negative", "max_tokens", -5},
		{"top_p string", "top_p", "1"},
		{"stop number", "stop", 7},
		{"stop mixed list", "stop", []any{"a", 1}},
		{"route unknown", "route", "roundrobin"},
		{"models mixed", "models", []any{"a", 2}},
		{"session_id too long", "session_id", string(make([]byte, 129))},
		{"response_format string", "response_format", "json"},
		{"plugins object", "plugins", map[string]any{}},
		{"model empty", "model", ""},
		{"debug string", "debug", "yes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ValidateOverrides(map[string]any{tc.key: tc.val})
			if _, ok := out[tc.key]; ok {
				t.Errorf("key %q with value %#v should be dropped", tc.key, tc.val)
			}
		})
	}
}

func TestValidateOverridesReasoning(t *testing.T) {
	out := ValidateOverrides(map[string]any{
		"reasoning": map[string]any{
			"effort":     "high",
			"max_tokens": float64(1024),
			"excluded":   false,
			"summary":    "concise",
			"bogus":      1,
			"elaborate":  "nope",
		},
	})
	r, ok := out["reasoning"].(map[string]any)
	if !ok {
		t.Fatalf("reasoning missing: %v", out)
	}
	want := map[string]any{
		"effort":     "high",
		"max_tokens": float64(1024),
		"excluded":   false,
		"summary":    "concise",
	}
	if !reflect.DeepEqual(r, want) {
		t.Errorf("reasoning = %v, want %v", r, want)
	}
}

func TestValidateOverridesReasoningAllInvalid(t *testing.T) {
	out := ValidateOverrides(map[string]any{
		"reasoning": map[string]any{"effort": "extreme", "max_tokens": -1},
	})
	if _, ok := out["reasoning"]; ok {
		t.Errorf("reasoning with no surviving fields should be omitted: %v", out)
	}
}

func TestValidateOverridesEffortValues(t *testing.T) {
	for _, effort := range []string{"xhigh", "high", "medium", "low", "minimal", "none"} {
		out := ValidateOverrides(map[string]any{"reasoning": map[string]any{"effort": effort}})
		if _, ok := out["reasoning"]; !ok {
			t.Errorf("effort %q should be accepted", effort)
		}
	}
}

func TestValidateOverridesStopString(t *testing.T) {
	out := ValidateOverrides(map[string]any{"stop": "END"})
	if out["stop"] != "END" {
		t.Errorf("stop = %v", out["stop"])
	}
}
