package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heddlehq/heddle/internal/tools"
)

type writeTool struct {
	cwd string
}

// NewWriteTool writes files relative to cwd, creating parent directories.
func NewWriteTool(cwd string) tools.Tool {
	return &writeTool{cwd: defaultCWD(cwd)}
}

func (t *writeTool) Name() string {
	return "write"
}

func (t *writeTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, overwrites if it does, and creates parent directories automatically."
}

func (t *writeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write (relative or absolute within the working directory)",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "File content to write",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *writeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, ok := toStringArg(args, "path")
	if !ok || strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("missing required argument: path")
	}
	content, ok := toStringArg(args, "content")
	if !ok {
		return "", fmt.Errorf("missing required argument: content")
	}

	target, err := resolveSafePath(t.cwd, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", err
	}

	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}
