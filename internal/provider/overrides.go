package provider

import (
	"log/slog"
	"math"
)

var reasoningEfforts = map[string]bool{
	"xhigh": true, "high": true, "medium": true, "low": true, "minimal": true, "none": true,
}

var reasoningSummaries = map[string]bool{
	"auto": true, "concise": true, "detailed": true,
}

// ValidateOverrides filters per-call request overrides. Values are filtered,
// never coerced: malformed values and unknown keys are dropped with a debug
// note and the request proceeds without them.
func ValidateOverrides(overrides map[string]any) map[string]any {
	out := make(map[string]any, len(overrides))
	for key, val := range overrides {
		switch key {
		case "model":
			if s, ok := val.(string); ok && s != "" {
				out[key] = val
				continue
			}
		case "temperature":
			if n, ok := asNumber(val); ok && n >= 0 && n <= 2 {
				out[key] = val
				continue
			}
		case "max_tokens":
			if isPositiveInt(val) {
				out[key] = val
				continue
			}
		case "top_p", "seed", "frequency_penalty", "presence_penalty":
			if _, ok := asNumber(val); ok {
				out[key] = val
				continue
			}
		case "stop":
			if isString(val) || isStringList(val) {
				out[key] = val
				continue
			}
		case "route":
			if s, ok := val.(string); ok && (s == "fallback" || s == "sort") {
				out[key] = val
				continue
			}
		case "models":
			if isStringList(val) {
				out[key] = val
				continue
			}
		case "session_id":
			if s, ok := val.(string); ok && len(s) <= 128 {
				out[key] = val
				continue
			}
		case "reasoning":
			if m, ok := val.(map[string]any); ok {
				if r := validateReasoning(m); len(r) > 0 {
					out[key] = r
					continue
				}
			}
		case "response_format", "provider":
			if _, ok := val.(map[string]any); ok {
				out[key] = val
				continue
			}
		case "tool_choice":
			switch val.(type) {
			case string, map[string]any:
				out[key] = val
				continue
			}
		case "plugins":
			if _, ok := val.([]any); ok {
				out[key] = val
				continue
			}
		case "debug":
			switch val.(type) {
			case bool, map[string]any:
				out[key] = val
				continue
			}
		default:
			slog.Debug("dropping unknown request override", "channel", "provider", "key", key)
			continue
		}
		slog.Debug("dropping invalid request override", "channel", "provider", "key", key)
	}
	return out
}

func validateReasoning(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, val := range m {
		switch key {
		case "effort":
			if s, ok := val.(string); ok && reasoningEfforts[s] {
				out[key] = val
				continue
			}
		case "max_tokens":
			if isPositiveInt(val) {
				out[key] = val
				continue
			}
		case "excluded":
			if _, ok := val.(bool); ok {
				out[key] = val
				continue
			}
		case "summary":
			if s, ok := val.(string); ok && reasoningSummaries[s] {
				out[key] = val
				continue
			}
		default:
			slog.Debug("dropping unknown reasoning override", "channel", "provider", "key", key)
			continue
		}
		slog.Debug("dropping invalid reasoning override", "channel", "provider", "key", key)
	}
	return out
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func isPositiveInt(v any) bool {
	n, ok := asNumber(v)
	return ok && n > 0 && n == math.Trunc(n)
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// isStringList accepts []string and JSON-decoded []any holding only strings.
func isStringList(v any) bool {
	switch list := v.(type) {
	case []string:
		return true
	case []any:
		for _, item := range list {
			if !isString(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
