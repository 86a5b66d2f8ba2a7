// Package builtin provides the default tool set offered to the model:
// read, write, edit, glob, grep, and bash. All file access is jailed to
// the session working directory and all output is truncated to fixed
// budgets before it reaches the conversation.
package builtin

import "github.com/heddlehq/heddle/internal/tools"

const (
	defaultMaxLines = 2000
	defaultMaxBytes = 256 * 1024
)

// All returns the built-in tools rooted at cwd, in the order they are
// presented to the model.
func All(cwd string) []tools.Tool {
	return []tools.Tool{
		NewReadTool(cwd),
		NewWriteTool(cwd),
		NewEditTool(cwd),
		NewGlobTool(cwd),
		NewGrepTool(cwd),
		NewBashTool(cwd, 0),
	}
}

// Register adds the built-in tools to reg, optionally filtered by name.
// An empty filter registers everything.
func Register(reg *tools.Registry, cwd string, filter []string) error {
	allowed := map[string]bool{}
	for _, name := range filter {
		allowed[name] = true
	}
	for _, tool := range All(cwd) {
		if len(allowed) > 0 && !allowed[tool.Name()] {
			continue
		}
		if err := reg.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
