package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAllContainsDefaultSet(t *testing.T) {
	toolset := All(t.TempDir())
	names := map[string]bool{}
	for _, tool := range toolset {
		names[tool.Name()] = true
	}
	if len(toolset) != 6 {
		t.Fatalf("expected exactly 6 tools, got %d", len(toolset))
	}
	for _, required := range []string{"read", "write", "edit", "glob", "grep", "bash"} {
		if !names[required] {
			t.Fatalf("missing required tool: %s", required)
		}
	}
}

func TestWriteAndReadTools(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeTool := NewWriteTool(dir)
	readTool := NewReadTool(dir)

	out, err := writeTool.Execute(ctx, map[string]any{
		"path":    "hello.py",
		"content": "print('hello')\n",
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(out, "Successfully wrote") {
		t.Fatalf("unexpected write output: %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "hello.py"))
	if err != nil {
		t.Fatalf("read file failed: %v", err)
	}
	if string(data) != "print('hello')\n" {
		t.Fatalf("unexpected file content: %q", string(data))
	}

	out, err = readTool.Execute(ctx, map[string]any{"path": "hello.py"})
	if err != nil {
		t.Fatalf("tool read failed: %v", err)
	}
	if !strings.Contains(out, "print('hello')") {
		t.Fatalf("unexpected tool output: %q", out)
	}
}

func TestWriteToolRejectsPathEscape(t *testing.T) {
	writeTool := NewWriteTool(t.TempDir())
	if _, err := writeTool.Execute(context.Background(), map[string]any{
		"path":    "../escape.txt",
		"content": "bad",
	}); err == nil {
		t.Fatal("expected path escape error")
	}
}

func TestReadToolPagingAndBounds(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeTool := NewWriteTool(dir)
	readTool := NewReadTool(dir)

	if _, err := writeTool.Execute(ctx, map[string]any{
		"path":    "notes.txt",
		"content": "line1\nline2\nline3\nline4\nline5\n",
	}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := readTool.Execute(ctx, map[string]any{
		"path":   "notes.txt",
		"offset": 2,
		"limit":  2,
	})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(out, "line2\nline3") {
		t.Fatalf("unexpected paged read output: %q", out)
	}
	if !strings.Contains(out, "Use offset=4 to continue") {
		t.Fatalf("missing continuation hint: %q", out)
	}

	_, err = readTool.Execute(ctx, map[string]any{
		"path":   "notes.txt",
		"offset": 99,
	})
	if err == nil || !strings.Contains(err.Error(), "beyond end of file") {
		t.Fatalf("expected offset bounds error, got %v", err)
	}
}

func TestReadToolFirstLineExceedsMaxBytes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if _, err := NewWriteTool(dir).Execute(ctx, map[string]any{
		"path":    "big.txt",
		"content": strings.Repeat("x", 40),
	}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := NewReadTool(dir).Execute(ctx, map[string]any{
		"path":      "big.txt",
		"max_bytes": 8,
	})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(out, "exceeds 8B limit") {
		t.Fatalf("expected max-bytes warning, got %q", out)
	}
}

func TestReadToolEmptyFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := NewReadTool(dir).Execute(ctx, map[string]any{"path": "empty.txt"})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "(empty file)" {
		t.Fatalf("expected (empty file), got %q", out)
	}
}

func TestEditTool(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeTool := NewWriteTool(dir)
	editTool := NewEditTool(dir)

	if _, err := writeTool.Execute(ctx, map[string]any{
		"path":    "main.py",
		"content": "print('helo world')\n",
	}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := editTool.Execute(ctx, map[string]any{
		"path":       "main.py",
		"old_string": "helo world",
		"new_string": "hello world",
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !strings.Contains(out, "replaced 1 occurrence") {
		t.Fatalf("unexpected edit output: %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "main.py"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "print('hello world')\n" {
		t.Fatalf("unexpected content after edit: %q", string(data))
	}
}

func TestEditToolValidation(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeTool := NewWriteTool(dir)
	editTool := NewEditTool(dir)

	if _, err := writeTool.Execute(ctx, map[string]any{
		"path":    "dupe.txt",
		"content": "same\nsame\n",
	}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := editTool.Execute(ctx, map[string]any{
		"path":       "dupe.txt",
		"old_string": "same",
		"new_string": "new",
	})
	if err == nil || !strings.Contains(err.Error(), "replace_all=true") {
		t.Fatalf("expected uniqueness error, got %v", err)
	}

	_, err = editTool.Execute(ctx, map[string]any{
		"path":       "dupe.txt",
		"old_string": "missing",
		"new_string": "new",
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing old_string error, got %v", err)
	}
}

func TestEditToolReplaceAll(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if _, err := NewWriteTool(dir).Execute(ctx, map[string]any{
		"path":    "multi.txt",
		"content": "a\na\na\n",
	}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := NewEditTool(dir).Execute(ctx, map[string]any{
		"path":        "multi.txt",
		"old_string":  "a",
		"new_string":  "b",
		"replace_all": true,
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !strings.Contains(out, "replaced 3 occurrence") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGlobTool(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	for _, p := range []string{"main.go", "sub/a.go", "sub/deep/b.go", "sub/note.txt"} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	globTool := NewGlobTool(dir)

	out, err := globTool.Execute(ctx, map[string]any{"pattern": "**/*.go"})
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	for _, want := range []string{"main.go", filepath.Join("sub", "a.go"), filepath.Join("sub", "deep", "b.go")} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got %q", want, out)
		}
	}
	if strings.Contains(out, "note.txt") {
		t.Fatalf("txt file should not match: %q", out)
	}

	out, err = globTool.Execute(ctx, map[string]any{"pattern": "*.txt"})
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if !strings.Contains(out, "note.txt") {
		t.Fatalf("bare pattern should match by base name: %q", out)
	}

	out, err = globTool.Execute(ctx, map[string]any{"pattern": "*.rs"})
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if out != "No files matched the pattern." {
		t.Fatalf("expected no-match message, got %q", out)
	}
}

func TestGrepTool(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\nfunc Hello() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("hello there\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	grepTool := NewGrepTool(dir)

	out, err := grepTool.Execute(ctx, map[string]any{"pattern": "func Hello"})
	if err != nil {
		t.Fatalf("grep failed: %v", err)
	}
	if !strings.Contains(out, "a.go:2: func Hello() {}") {
		t.Fatalf("unexpected grep output: %q", out)
	}

	out, err = grepTool.Execute(ctx, map[string]any{
		"pattern":          "HELLO",
		"case_insensitive": true,
		"glob_filter":      "*.txt",
	})
	if err != nil {
		t.Fatalf("grep failed: %v", err)
	}
	if !strings.Contains(out, "b.txt:1: hello there") {
		t.Fatalf("expected case-insensitive txt match, got %q", out)
	}
	if strings.Contains(out, "a.go") {
		t.Fatalf("glob_filter should exclude .go files: %q", out)
	}

	if _, err := grepTool.Execute(ctx, map[string]any{"pattern": "[unclosed"}); err == nil {
		t.Fatal("expected invalid pattern error")
	}

	out, err = grepTool.Execute(ctx, map[string]any{"pattern": "no-such-text"})
	if err != nil {
		t.Fatalf("grep failed: %v", err)
	}
	if out != "No matches found." {
		t.Fatalf("expected no-match message, got %q", out)
	}
}

func TestGrepToolMaxResults(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "many.txt"), []byte(strings.Repeat("hit\n", 10)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := NewGrepTool(dir).Execute(ctx, map[string]any{
		"pattern":     "hit",
		"max_results": 3,
	})
	if err != nil {
		t.Fatalf("grep failed: %v", err)
	}
	if !strings.Contains(out, "(truncated at 3 results)") {
		t.Fatalf("expected truncation note, got %q", out)
	}
	if got := strings.Count(out, "many.txt:"); got != 3 {
		t.Fatalf("expected 3 matches, got %d: %q", got, out)
	}
}

func TestBashTool(t *testing.T) {
	bashTool := NewBashTool(t.TempDir(), 5*time.Second)
	out, err := bashTool.Execute(context.Background(), map[string]any{"command": "echo test-output"})
	if err != nil {
		t.Fatalf("bash failed: %v", err)
	}
	if strings.TrimSpace(out) != "test-output" {
		t.Fatalf("unexpected bash output: %q", out)
	}
}

func TestBashToolReturnsExitCodeError(t *testing.T) {
	bashTool := NewBashTool(t.TempDir(), 5*time.Second)
	_, err := bashTool.Execute(context.Background(), map[string]any{
		"command": "echo boom && exit 7",
	})
	if err == nil || !strings.Contains(err.Error(), "Command exited with code 7") {
		t.Fatalf("expected exit code error, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should carry the command output: %v", err)
	}
}

func TestBashToolNoOutput(t *testing.T) {
	bashTool := NewBashTool(t.TempDir(), 5*time.Second)
	out, err := bashTool.Execute(context.Background(), map[string]any{"command": "true"})
	if err != nil {
		t.Fatalf("bash failed: %v", err)
	}
	if out != "(no output)" {
		t.Fatalf("expected (no output), got %q", out)
	}
}

func TestBashToolTimeout(t *testing.T) {
	bashTool := NewBashTool(t.TempDir(), 0)
	_, err := bashTool.Execute(context.Background(), map[string]any{
		"command": "sleep 5",
		"timeout": 0.2,
	})
	if err == nil || !strings.Contains(err.Error(), "timed out after 0.2 seconds") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestTruncateHeadByLines(t *testing.T) {
	content := "1\n2\n3\n4\n5"
	res := truncateHead(content, 3, 1024)
	if !res.Truncated || res.TruncatedBy != "lines" {
		t.Fatalf("expected line truncation, got %+v", res)
	}
	if res.Content != "1\n2\n3" {
		t.Fatalf("unexpected content: %q", res.Content)
	}
	if res.TotalLines != 5 || res.OutputLines != 3 {
		t.Fatalf("unexpected counts: %+v", res)
	}
}

func TestTruncateTailKeepsEnd(t *testing.T) {
	content := "1\n2\n3\n4\n5"
	res := truncateTail(content, 2, 1024)
	if res.Content != "4\n5" {
		t.Fatalf("unexpected content: %q", res.Content)
	}
}

func TestTruncateTailPartialLastLine(t *testing.T) {
	content := "short\n" + strings.Repeat("x", 100)
	res := truncateTail(content, 10, 20)
	if !res.LastLinePartial {
		t.Fatalf("expected partial last line, got %+v", res)
	}
	if len(res.Content) > 20 {
		t.Fatalf("content exceeds byte budget: %d", len(res.Content))
	}
}

func TestTruncateToBytesFromEndUTF8(t *testing.T) {
	s := "héllo wörld"
	out := truncateToBytesFromEnd(s, 5)
	if len(out) > 5 {
		t.Fatalf("too long: %d", len(out))
	}
	for _, r := range out {
		if r == '�' {
			t.Fatalf("result contains replacement rune: %q", out)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes int
		want  string
	}{
		{512, "512B"},
		{2048, "2.0KB"},
		{3 * 1024 * 1024, "3.0MB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.bytes); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}
