package agent

import (
	"sort"
	"strings"

	"github.com/heddlehq/heddle/internal/provider"
)

// assembler folds streaming chunks into the assistant message they
// describe. Tool-call fragments are keyed by the wire index: the id is
// last-writer-wins, name and arguments accumulate by concatenation.
type assembler struct {
	content strings.Builder
	calls   map[int]*callAccumulator
	usage   *provider.Usage
}

type callAccumulator struct {
	id   string
	name strings.Builder
	args strings.Builder
}

func newAssembler() *assembler {
	return &assembler{calls: make(map[int]*callAccumulator)}
}

// add folds one chunk and returns its text delta, "" when the chunk
// carried none.
func (a *assembler) add(chunk *provider.Chunk) string {
	if chunk.Usage != nil {
		a.usage = chunk.Usage
	}
	var delta strings.Builder
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			a.content.WriteString(choice.Delta.Content)
			delta.WriteString(choice.Delta.Content)
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc, ok := a.calls[tc.Index]
			if !ok {
				acc = &callAccumulator{}
				a.calls[tc.Index] = acc
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			acc.name.WriteString(tc.Function.Name)
			acc.args.WriteString(tc.Function.Arguments)
		}
	}
	return delta.String()
}

// message returns the assembled assistant message. Content is null when no
// text arrived; tool calls are ordered by their stream index.
func (a *assembler) message() provider.Message {
	var content *string
	if a.content.Len() > 0 {
		s := a.content.String()
		content = &s
	}

	indexes := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var calls []provider.ToolCall
	for _, idx := range indexes {
		acc := a.calls[idx]
		calls = append(calls, provider.ToolCall{
			ID:   acc.id,
			Type: "function",
			Function: provider.ToolCallFunction{
				Name:      acc.name.String(),
				Arguments: acc.args.String(),
			},
		})
	}
	return provider.AssistantMessage(content, calls)
}
