// Package mcp bridges tools served by MCP stdio servers into the heddle
// tool registry. Servers come from [mcp.<name>] config tables; each remote
// tool registers as "<server>_<tool>".
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// callTimeout bounds one remote tool execution.
const callTimeout = 60 * time.Second

// BridgedTool adapts one remote MCP tool to the tools.Tool interface.
type BridgedTool struct {
	server     string
	remoteName string
	name       string
	desc       string
	params     map[string]any
	client     *mcpclient.Client
}

func newBridgedTool(server string, remote mcpgo.Tool, cli *mcpclient.Client) *BridgedTool {
	return &BridgedTool{
		server:     server,
		remoteName: remote.Name,
		name:       server + "_" + remote.Name,
		desc:       remote.Description,
		params:     schemaToMap(remote.InputSchema),
		client:     cli,
	}
}

func (t *BridgedTool) Name() string { return t.name }

func (t *BridgedTool) Description() string { return t.desc }

func (t *BridgedTool) Parameters() map[string]any { return t.params }

// Server returns the owning server's config name.
func (t *BridgedTool) Server() string { return t.server }

// Execute forwards the call to the MCP server. Tool-reported errors come
// back as Go errors so the registry renders them for the model.
func (t *BridgedTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	result, err := t.client.CallTool(callCtx, req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("mcp tool %s timed out after %s", t.name, callTimeout)
		}
		return "", fmt.Errorf("mcp tool %s: %w", t.name, err)
	}

	text := textContent(result)
	if result.IsError {
		if text == "" {
			text = fmt.Sprintf("mcp tool %s failed", t.name)
		}
		return "", errors.New(text)
	}
	return text, nil
}

// schemaToMap converts the MCP input schema to the parameters map the
// provider wire format expects.
func schemaToMap(schema mcpgo.ToolInputSchema) map[string]any {
	m := map[string]any{"type": schema.Type}
	if schema.Type == "" {
		m["type"] = "object"
	}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

// textContent concatenates the text parts of a tool result. Non-text parts
// are noted but not decoded.
func textContent(result *mcpgo.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
