package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heddlehq/heddle/internal/provider"
)

// ErrUnknownTool is returned by Execute when the requested name was never
// registered. Unlike argument and execution failures it is not recoverable:
// the agent loop treats it as fatal.
var ErrUnknownTool = errors.New("unknown tool")

// Registry maps tool names to implementations. Definitions are projected in
// registration order so the model sees a stable tool list across turns.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names are unique; registering a duplicate is an error.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions projects the registry into provider tool definitions, in
// registration order.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, ToProviderDef(r.tools[name]))
	}
	return defs
}

// Execute runs a registered tool against raw argument JSON from the model.
//
// Argument and execution failures are recovered as an "Error: ..." string so
// the model can read the failure and correct course. An unknown name is the
// one hard failure: it means the model was offered a tool list the registry
// cannot honor.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "Error: Invalid JSON arguments: " + argsJSON, nil
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	slog.Debug("tool executed",
		"channel", "tools",
		"tool", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"is_error", err != nil,
	)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	return ScrubCredentials(result), nil
}
