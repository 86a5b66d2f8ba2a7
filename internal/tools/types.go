package tools

import (
	"context"

	"github.com/heddlehq/heddle/internal/provider"
)

// Tool is the interface all tools implement. Execute returns its result as a
// string for the model; recoverable failures come back as error values and
// are stringified by the registry, never panics.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToProviderDef converts a Tool to a provider.ToolDefinition for the
// completions API.
func ToProviderDef(t Tool) provider.ToolDefinition {
	return provider.ToolDefinition{
		Type: "function",
		Function: provider.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// Func adapts a plain function into a Tool. Used by tests and small
// embedder-supplied tools.
type Func struct {
	ToolName        string
	ToolDescription string
	ToolParameters  map[string]any
	Fn              func(ctx context.Context, args map[string]any) (string, error)
}

func (f *Func) Name() string { return f.ToolName }

func (f *Func) Description() string { return f.ToolDescription }

func (f *Func) Parameters() map[string]any { return f.ToolParameters }

func (f *Func) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}
