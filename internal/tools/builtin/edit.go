package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/heddlehq/heddle/internal/tools"
)

type editTool struct {
	cwd string
}

// NewEditTool replaces exact text in a file. The old text must be unique
// unless replace_all is set.
func NewEditTool(cwd string) tools.Tool {
	return &editTool{cwd: defaultCWD(cwd)}
}

func (t *editTool) Name() string {
	return "edit"
}

func (t *editTool) Description() string {
	return "Edit a file by replacing an exact occurrence of old_string with new_string. old_string must be unique in the file unless replace_all is true."
}

func (t *editTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Relative file path"},
			"old_string": map[string]any{
				"type":        "string",
				"description": "Exact text to find in the file",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace all occurrences. Default: false.",
			},
		},
		"required": []string{"path", "old_string", "new_string"},
	}
}

func (t *editTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, ok := toStringArg(args, "path")
	if !ok || strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("missing required argument: path")
	}
	oldString, ok := toStringArg(args, "old_string")
	if !ok {
		return "", fmt.Errorf("missing required argument: old_string")
	}
	newString, ok := toStringArg(args, "new_string")
	if !ok {
		return "", fmt.Errorf("missing required argument: new_string")
	}
	replaceAll := false
	if raw, ok := args["replace_all"]; ok {
		if b, ok := toBool(raw); ok {
			replaceAll = b
		}
	}

	target, err := resolveSafePath(t.cwd, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", err
	}
	content := string(data)

	count := strings.Count(content, oldString)
	if count == 0 {
		return "", fmt.Errorf("old_string not found in %s", path)
	}
	if count > 1 && !replaceAll {
		return "", fmt.Errorf("old_string found %d times in %s. Provide more context to make it unique, or set replace_all=true", count, path)
	}

	var updated string
	if replaceAll {
		updated = strings.ReplaceAll(content, oldString, newString)
	} else {
		updated = strings.Replace(content, oldString, newString, 1)
	}
	if updated == content {
		return "", fmt.Errorf("no changes applied")
	}

	if err := os.WriteFile(target, []byte(updated), 0o644); err != nil {
		return "", err
	}

	replacements := 1
	if replaceAll {
		replacements = count
	}
	return fmt.Sprintf("Successfully replaced %d occurrence(s) in %s", replacements, path), nil
}
