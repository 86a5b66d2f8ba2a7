package agent

import (
	"testing"

	"github.com/heddlehq/heddle/internal/provider"
)

func contentChunk(text string) *provider.Chunk {
	return &provider.Chunk{Choices: []provider.ChunkChoice{{
		Delta: provider.Delta{Content: text},
	}}}
}

func toolChunk(index int, id, name, args string) *provider.Chunk {
	return &provider.Chunk{Choices: []provider.ChunkChoice{{
		Delta: provider.Delta{ToolCalls: []provider.DeltaToolCall{{
			Index:    index,
			ID:       id,
			Function: provider.DeltaToolCallFunction{Name: name, Arguments: args},
		}}},
	}}}
}

func TestAssemblerContent(t *testing.T) {
	asm := newAssembler()
	if got := asm.add(contentChunk("Hello")); got != "Hello" {
		t.Errorf("add should return the text delta, got %q", got)
	}
	asm.add(contentChunk(" world"))

	msg := asm.message()
	if msg.Role != provider.RoleAssistant {
		t.Errorf("unexpected role %q", msg.Role)
	}
	if msg.Text() != "Hello world" {
		t.Errorf("unexpected content %q", msg.Text())
	}
	if len(msg.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(msg.ToolCalls))
	}
}

func TestAssemblerNullContentWhenNoText(t *testing.T) {
	asm := newAssembler()
	asm.add(toolChunk(0, "c1", "read", `{}`))
	msg := asm.message()
	if msg.Content != nil {
		t.Errorf("tool-only turn should carry null content, got %q", *msg.Content)
	}
}

func TestAssemblerConcatenatesFragments(t *testing.T) {
	asm := newAssembler()
	asm.add(toolChunk(0, "call_1", "re", `{"pa`))
	asm.add(toolChunk(0, "", "ad", `th":"x"}`))

	msg := asm.message()
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(msg.ToolCalls))
	}
	got := msg.ToolCalls[0]
	if got.ID != "call_1" {
		t.Errorf("empty fragment ids must not clobber, got %q", got.ID)
	}
	if got.Function.Name != "read" {
		t.Errorf("unexpected name %q", got.Function.Name)
	}
	if got.Function.Arguments != `{"path":"x"}` {
		t.Errorf("unexpected arguments %q", got.Function.Arguments)
	}
	if got.Type != "function" {
		t.Errorf("unexpected type %q", got.Type)
	}
}

func TestAssemblerOrdersCallsByIndex(t *testing.T) {
	asm := newAssembler()
	asm.add(toolChunk(1, "c_second", "write", `{}`))
	asm.add(toolChunk(0, "c_first", "read", `{}`))

	msg := asm.message()
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ID != "c_first" || msg.ToolCalls[1].ID != "c_second" {
		t.Errorf("calls out of index order: %q, %q", msg.ToolCalls[0].ID, msg.ToolCalls[1].ID)
	}
}

func TestAssemblerKeepsLastUsage(t *testing.T) {
	asm := newAssembler()
	asm.add(&provider.Chunk{Usage: &provider.Usage{TotalTokens: 3}})
	asm.add(&provider.Chunk{Usage: &provider.Usage{TotalTokens: 9}})
	if asm.usage == nil || asm.usage.TotalTokens != 9 {
		t.Errorf("usage should be last observed, got %+v", asm.usage)
	}
}
