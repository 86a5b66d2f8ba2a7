package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// HTTPError is a non-2xx response from the remote API. Its message format is
// load-bearing: the headless worker parses it back apart when normalizing
// errors for the controller.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Body)
}

// vendorName derives a display name from the base URL host, falling back to
// "Provider" when the URL gives nothing usable.
func vendorName(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "Provider"
	}
	host := strings.TrimPrefix(u.Hostname(), "api.")
	label, _, _ := strings.Cut(host, ".")
	switch label {
	case "openrouter":
		return "OpenRouter"
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	case "":
		return "Provider"
	default:
		return strings.ToUpper(label[:1]) + label[1:]
	}
}
