package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heddlehq/heddle/internal/tools"
)

// errMaxResults stops a walk early once enough matches have been collected.
var errMaxResults = errors.New("max results reached")

// skipDir reports directories that are never worth walking into.
func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "__pycache__", ".venv", "vendor", ".cache":
		return true
	}
	return false
}

type globTool struct {
	cwd string
}

// NewGlobTool finds files matching a glob pattern, with ** matching any
// number of path segments.
func NewGlobTool(cwd string) tools.Tool {
	return &globTool{cwd: defaultCWD(cwd)}
}

func (t *globTool) Name() string {
	return "glob"
}

func (t *globTool) Description() string {
	return "Find files matching a glob pattern (e.g. \"**/*.go\"). Returns matching paths relative to the search directory."
}

func (t *globTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern. A bare pattern matches file names anywhere in the tree; use / for path-anchored patterns and ** for any number of directories.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search. Default: working directory.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (default: 100)",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *globTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	pattern, ok := toStringArg(args, "pattern")
	if !ok || strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("missing required argument: pattern")
	}
	dir := t.cwd
	if raw, ok := toStringArg(args, "path"); ok && strings.TrimSpace(raw) != "" {
		resolved, err := resolveSafePath(t.cwd, raw)
		if err != nil {
			return "", err
		}
		dir = resolved
	}
	maxResults := 100
	if raw, ok := args["max_results"]; ok {
		if n, ok := toInt(raw); ok && n > 0 {
			maxResults = n
		}
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
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
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		if matchGlob(pattern, filepath.ToSlash(rel)) {
			matches = append(matches, rel)
			if len(matches) >= maxResults {
				return errMaxResults
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errMaxResults) {
		return "", err
	}

	if len(matches) == 0 {
		return "No files matched the pattern.", nil
	}
	sort.Strings(matches)

	out := strings.Join(matches, "\n")
	if len(matches) >= maxResults {
		out += fmt.Sprintf("\n\n(truncated at %d results)", maxResults)
	}
	return out, nil
}

// matchGlob matches a slash-separated relative path against pattern. A
// pattern without a separator matches the base name anywhere in the tree.
// "**" matches zero or more whole path segments.
func matchGlob(pattern, rel string) bool {
	if !strings.Contains(pattern, "/") {
		ok, err := filepath.Match(pattern, filepath.Base(rel))
		return err == nil && ok
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], parts[1:])
}
