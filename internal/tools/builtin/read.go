package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/heddlehq/heddle/internal/tools"
)

type readTool struct {
	cwd string
}

// NewReadTool reads files relative to cwd with head truncation and
// continuation hints.
func NewReadTool(cwd string) tools.Tool {
	return &readTool{cwd: defaultCWD(cwd)}
}

func (t *readTool) Name() string {
	return "read"
}

func (t *readTool) Description() string {
	return "Read a file path relative to the working directory."
}

func (t *readTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Relative file path"},
			"offset": map[string]any{
				"type":        "integer",
				"description": "Line number to start reading from (1-indexed)",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of lines to read",
			},
			"max_bytes": map[string]any{
				"type":        "integer",
				"description": "Optional maximum bytes to return",
			},
		},
		"required": []string{"path"},
	}
}

func (t *readTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, ok := toStringArg(args, "path")
	if !ok || strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("missing required argument: path")
	}

	target, err := resolveSafePath(t.cwd, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", err
	}

	maxBytes := defaultMaxBytes
	if raw, ok := args["max_bytes"]; ok {
		if n, ok := toInt(raw); ok && n > 0 {
			maxBytes = n
		}
	}
	offset := 1
	if raw, ok := args["offset"]; ok {
		if n, ok := toInt(raw); ok && n > 0 {
			offset = n
		}
	}
	limit := 0
	if raw, ok := args["limit"]; ok {
		if n, ok := toInt(raw); ok && n > 0 {
			limit = n
		}
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	allLines := strings.Split(content, "\n")
	totalLines := len(allLines)
	startLine := max(offset, 1)
	if startLine > totalLines {
		return "", fmt.Errorf("offset %d is beyond end of file (%d lines total)", offset, totalLines)
	}

	startIdx := startLine - 1
	selected := allLines[startIdx:]
	userLimitedLines := 0
	if limit > 0 {
		endIdx := min(startIdx+limit, len(allLines))
		selected = allLines[startIdx:endIdx]
		userLimitedLines = endIdx - startIdx
	}

	trunc := truncateHead(strings.Join(selected, "\n"), defaultMaxLines, maxBytes)
	out := trunc.Content

	switch {
	case trunc.FirstLineExceedsLimit:
		out = fmt.Sprintf(
			"[Line %d is %s, exceeds %s limit. Use bash: sed -n '%dp' %s | head -c %d]",
			startLine,
			formatSize(len(allLines[startIdx])),
			formatSize(maxBytes),
			startLine,
			path,
			maxBytes,
		)
	case trunc.Truncated:
		endLine := startLine + trunc.OutputLines - 1
		nextOffset := endLine + 1
		if trunc.TruncatedBy == "lines" {
			out += fmt.Sprintf(
				"\n\n[Showing lines %d-%d of %d. Use offset=%d to continue.]",
				startLine, endLine, totalLines, nextOffset,
			)
		} else {
			out += fmt.Sprintf(
				"\n\n[Showing lines %d-%d of %d (%s limit). Use offset=%d to continue.]",
				startLine, endLine, totalLines, formatSize(maxBytes), nextOffset,
			)
		}
	case userLimitedLines > 0 && startIdx+userLimitedLines < len(allLines):
		remaining := len(allLines) - (startIdx + userLimitedLines)
		nextOffset := startLine + userLimitedLines
		out += fmt.Sprintf("\n\n[%d more lines in file. Use offset=%d to continue.]", remaining, nextOffset)
	}

	if strings.TrimSpace(out) == "" {
		out = "(empty file)"
	}
	return out, nil
}
