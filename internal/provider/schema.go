package provider

import "strings"

// Schema keywords some upstream vendors reject. OpenRouter forwards tool
// schemas verbatim, so requests routed to these vendors fail unless the
// offending keys are stripped first.
// Gemini rejects: $ref, $defs, additionalProperties, examples, default.
// Anthropic ignores $ref/$defs but errors on dangling references.
var (
	geminiUnsupportedKeys    = []string{"$ref", "$defs", "additionalProperties", "examples", "default"}
	anthropicUnsupportedKeys = []string{"$ref", "$defs"}
)

// CleanToolSchemas returns a copy of tools with vendor-incompatible JSON
// Schema fields removed from each tool's parameters. Models whose vendor
// needs no cleaning get the original slice back unchanged.
func CleanToolSchemas(model string, tools []ToolDefinition) []ToolDefinition {
	removeKeys := unsupportedKeysForModel(model)
	if removeKeys == nil || len(tools) == 0 {
		return tools
	}

	cleaned := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		cleaned[i] = ToolDefinition{
			Type: t.Type,
			Function: ToolFunctionSchema{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  cleanSchema(t.Function.Parameters, removeKeys),
			},
		}
	}
	return cleaned
}

// unsupportedKeysForModel keys off the vendor prefix of an OpenRouter model
// slug ("google/gemini-2.5-pro", "anthropic/claude-sonnet-4").
func unsupportedKeysForModel(model string) []string {
	vendor, rest, found := strings.Cut(model, "/")
	if !found {
		rest = vendor
	}
	switch {
	case strings.HasPrefix(rest, "gemini"):
		return geminiUnsupportedKeys
	case vendor == "anthropic" || strings.HasPrefix(rest, "claude"):
		return anthropicUnsupportedKeys
	default:
		return nil
	}
}

// cleanSchema recursively removes unsupported keys from a JSON Schema map.
func cleanSchema(schema map[string]any, removeKeys []string) map[string]any {
	if schema == nil {
		return nil
	}

	result := make(map[string]any, len(schema))
	for k, v := range schema {
		if shouldRemoveKey(k, removeKeys) {
			continue
		}

		switch val := v.(type) {
		case map[string]any:
			result[k] = cleanSchema(val, removeKeys)
		case []any:
			result[k] = cleanSchemaSlice(val, removeKeys)
		default:
			result[k] = v
		}
	}
	return result
}

// cleanSchemaSlice recurses into arrays (e.g. "anyOf", "oneOf", "allOf").
func cleanSchemaSlice(items []any, removeKeys []string) []any {
	result := make([]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			result[i] = cleanSchema(m, removeKeys)
		} else {
			result[i] = item
		}
	}
	return result
}

func shouldRemoveKey(key string, removeKeys []string) bool {
	for _, rk := range removeKeys {
		if key == rk {
			return true
		}
	}
	return false
}
