package tools

import "regexp"

// Credential patterns scrubbed from tool output before it returns to the
// model. A read or bash call can surface key material from env files or
// shell history, and the conversation journal must not carry it.
var credentialPatterns = []*regexp.Regexp{
	// OpenRouter
	regexp.MustCompile(`sk-or-[a-zA-Z0-9-]{20,}`),
	// OpenAI-style keys
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	// GitHub tokens
	regexp.MustCompile(`gh[opsur]_[a-zA-Z0-9]{36}`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	// Generic key=value assignments
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|bearer|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

const redactedPlaceholder = "[REDACTED]"

// ScrubCredentials replaces known credential patterns in text with
// [REDACTED].
func ScrubCredentials(text string) string {
	for _, pat := range credentialPatterns {
		text = pat.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
