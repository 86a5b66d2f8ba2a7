package mcp

import (
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func TestSchemaToMap(t *testing.T) {
	schema := mcpgo.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
		},
		Required: []string{"query"},
	}

	m := schemaToMap(schema)
	if m["type"] != "object" {
		t.Errorf("expected type=object, got %v", m["type"])
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatal("expected properties map")
	}
	if _, ok := props["query"]; !ok {
		t.Error("expected 'query' in properties")
	}
	req, ok := m["required"].([]string)
	if !ok || len(req) != 1 || req[0] != "query" {
		t.Errorf("expected required=[query], got %v", m["required"])
	}
}

func TestSchemaToMapDefaultsToObject(t *testing.T) {
	m := schemaToMap(mcpgo.ToolInputSchema{})
	if m["type"] != "object" {
		t.Errorf("expected default type=object, got %v", m["type"])
	}
	if _, ok := m["properties"]; ok {
		t.Error("empty schema should not carry properties")
	}
}

func TestTextContent(t *testing.T) {
	result := &mcpgo.CallToolResult{
		Content: []mcpgo.Content{
			mcpgo.TextContent{Type: "text", Text: "hello"},
			mcpgo.TextContent{Type: "text", Text: "world"},
		},
	}
	if got := textContent(result); got != "hello\nworld" {
		t.Errorf("expected joined text, got %q", got)
	}

	if got := textContent(nil); got != "" {
		t.Errorf("nil result should be empty, got %q", got)
	}
	if got := textContent(&mcpgo.CallToolResult{}); got != "" {
		t.Errorf("empty content should be empty, got %q", got)
	}
}

func TestBridgedToolNaming(t *testing.T) {
	remote := mcpgo.Tool{
		Name:        "read_file",
		Description: "Read a file",
		InputSchema: mcpgo.ToolInputSchema{Type: "object"},
	}
	bt := newBridgedTool("files", remote, nil)

	if bt.Name() != "files_read_file" {
		t.Errorf("expected files_read_file, got %s", bt.Name())
	}
	if bt.Server() != "files" {
		t.Errorf("expected server files, got %s", bt.Server())
	}
	if bt.Description() != "Read a file" {
		t.Errorf("unexpected description %q", bt.Description())
	}
	if bt.Parameters()["type"] != "object" {
		t.Errorf("unexpected parameters %v", bt.Parameters())
	}
}
