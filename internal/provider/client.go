package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL targets OpenRouter's OpenAI-compatible API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	completionsPath = "/chat/completions"

	// Identifying headers OpenRouter uses for app attribution. Not part of
	// the request contract.
	clientReferer = "https://github.com/heddlehq/heddle"
	clientTitle   = "heddle"
)

// RetryPolicy bounds retries of rate-limited requests. Only HTTP 429
// triggers a retry; the final 429 is returned to the caller unchanged.
type RetryPolicy struct {
	Enabled    bool
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries three times starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Enabled: true, MaxRetries: 3, BaseDelay: time.Second}
}

// Config constructs a Client.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string         // DefaultBaseURL when empty
	RequestParams map[string]any // sticky params merged under per-call overrides
	Retry         *RetryPolicy   // DefaultRetryPolicy when nil
	HTTPClient    *http.Client

	// RequestsPerMinute paces request starts client-side. 0 disables.
	RequestsPerMinute int
}

// Client issues chat completions against one OpenAI-compatible endpoint.
// Methods never mutate the client; With derives configured copies.
type Client struct {
	apiKey        string
	model         string
	baseURL       string
	vendor        string
	requestParams map[string]any
	retry         RetryPolicy
	httpClient    *http.Client
	limiter       *rate.Limiter
}

// New creates a client from cfg, applying defaults for base URL, retry
// policy, and HTTP client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return &Client{
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		baseURL:       strings.TrimRight(baseURL, "/"),
		vendor:        vendorName(baseURL),
		requestParams: cloneParams(cfg.RequestParams),
		retry:         retry,
		httpClient:    httpClient,
		limiter:       limiter,
	}
}

// Model returns the default model requests are sent with.
func (c *Client) Model() string { return c.model }

// With returns a copy of the client whose sticky request params are the
// receiver's merged with overrides, overrides winning. The receiver is left
// unchanged.
func (c *Client) With(overrides map[string]any) *Client {
	clone := *c
	merged := cloneParams(c.requestParams)
	for k, v := range overrides {
		merged[k] = v
	}
	clone.requestParams = merged
	return &clone
}

// Send performs one non-streaming completion and returns the parsed wire
// response.
func (c *Client) Send(ctx context.Context, conversation []Message, tools []ToolDefinition, overrides map[string]any) (*Response, error) {
	resp, err := c.do(ctx, c.buildBody(conversation, tools, overrides, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Stream performs one streaming completion. The caller owns the reader and
// must Close it; each reader is single-consumer.
func (c *Client) Stream(ctx context.Context, conversation []Message, tools []ToolDefinition, overrides map[string]any) (*StreamReader, error) {
	resp, err := c.do(ctx, c.buildBody(conversation, tools, overrides, true))
	if err != nil {
		return nil, err
	}
	return NewStreamReader(resp.Body), nil
}

// buildBody assembles the request payload: base fields, then sticky params,
// then validated per-call overrides, later writers winning. Tools are
// attached only when non-empty, cleaned for the target model's vendor.
func (c *Client) buildBody(conversation []Message, tools []ToolDefinition, overrides map[string]any, stream bool) map[string]any {
	body := map[string]any{
		"model":    c.model,
		"messages": conversation,
		"stream":   stream,
	}
	if stream {
		body["stream_options"] = map[string]any{"include_usage": true}
	}
	for k, v := range c.requestParams {
		body[k] = v
	}
	for k, v := range ValidateOverrides(overrides) {
		body[k] = v
	}
	if len(tools) > 0 {
		model, _ := body["model"].(string)
		body["tools"] = CleanToolSchemas(model, tools)
	}
	return body
}

func (c *Client) do(ctx context.Context, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + completionsPath

	maxAttempts := 1
	if c.retry.Enabled {
		maxAttempts = c.retry.MaxRetries + 1
	}
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("HTTP-Referer", clientReferer)
		req.Header.Set("X-Title", clientTitle)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxAttempts-1 {
			delay := retryDelay(resp.Header.Get("Retry-After"), attempt, c.retry.BaseDelay)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			slog.Debug("rate limited, retrying",
				"channel", "provider", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &HTTPError{Provider: c.vendor, Status: resp.StatusCode, Body: string(data)}
		}
		return resp, nil
	}
}

// retryDelay prefers the Retry-After header, which is either an integer
// number of seconds or an HTTP-date; otherwise exponential backoff from
// base.
func retryDelay(retryAfter string, attempt int, base time.Duration) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if target, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(target); d > 0 {
				return d
			}
			return 0
		}
	}
	return base << uint(attempt)
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
