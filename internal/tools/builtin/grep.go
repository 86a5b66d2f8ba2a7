package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/heddlehq/heddle/internal/tools"
)

type grepTool struct {
	cwd string
}

// NewGrepTool searches file contents with a regular expression.
func NewGrepTool(cwd string) tools.Tool {
	return &grepTool{cwd: defaultCWD(cwd)}
}

func (t *grepTool) Name() string {
	return "grep"
}

func (t *grepTool) Description() string {
	return "Search file contents using a regex pattern. Returns matching lines as path:line: text."
}

func (t *grepTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regex pattern to search for",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory or file to search. Default: working directory.",
			},
			"glob_filter": map[string]any{
				"type":        "string",
				"description": "File name filter (e.g. \"*.go\")",
			},
			"case_insensitive": map[string]any{
				"type":        "boolean",
				"description": "Case insensitive search. Default: false.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of matching lines (default: 100)",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *grepTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	pattern, ok := toStringArg(args, "pattern")
	if !ok || pattern == "" {
		return "", fmt.Errorf("missing required argument: pattern")
	}
	if b, ok := toBool(args["case_insensitive"]); ok && b {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	root := t.cwd
	if raw, ok := toStringArg(args, "path"); ok && strings.TrimSpace(raw) != "" {
		resolved, err := resolveSafePath(t.cwd, raw)
		if err != nil {
			return "", err
		}
		root = resolved
	}
	globFilter, _ := toStringArg(args, "glob_filter")
	maxResults := 100
	if raw, ok := args["max_results"]; ok {
		if n, ok := toInt(raw); ok && n > 0 {
			maxResults = n
		}
	}

	var out []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if globFilter != "" {
			if ok, err := filepath.Match(globFilter, d.Name()); err != nil || !ok {
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		// Binary heuristic: files with NUL bytes produce garbage matches.
		if bytes.IndexByte(data, 0) >= 0 {
			return nil
		}
		rel, err := filepath.Rel(t.cwd, path)
		if err != nil {
			rel = path
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				out = append(out, fmt.Sprintf("%s:%d: %s", rel, i+1, line))
				if len(out) >= maxResults {
					return errMaxResults
				}
			}
		}
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		err = filepath.WalkDir(root, walk)
	} else {
		err = walk(root, fs.FileInfoToDirEntry(info), nil)
	}
	if err != nil && !errors.Is(err, errMaxResults) {
		return "", err
	}

	if len(out) == 0 {
		return "No matches found.", nil
	}
	result := strings.Join(out, "\n")
	if len(out) >= maxResults {
		result += fmt.Sprintf("\n\n(truncated at %d results)", maxResults)
	}
	return result, nil
}
