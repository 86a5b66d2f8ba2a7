// Package instructions composes the agents context block that precedes the
// configured system prompt: AGENTS.md / HEDDLE.md files discovered from the
// working directory upward plus the global one, and skill packs described
// by SKILL.md files with YAML frontmatter.
package instructions

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// instructionFileNames are checked in order at each directory level; the
// first hit per directory wins.
var instructionFileNames = []string{"AGENTS.md", "HEDDLE.md"}

// Skill describes one discovered skill pack.
type Skill struct {
	Name        string
	Description string
	Path        string // absolute path to SKILL.md
	BaseDir     string // parent directory of SKILL.md
	Source      string // "project" or "global"
}

// Loader discovers instruction files and skill packs for one working
// directory. Version is bumped by the watcher so long-running surfaces can
// recompose the context on the next send.
type Loader struct {
	cwd     string
	home    string
	version atomic.Int64
}

// NewLoader builds a loader rooted at cwd with the given heddle home.
func NewLoader(cwd, home string) *Loader {
	return &Loader{cwd: cwd, home: home}
}

// Files returns the instruction files in prompt order: the global one under
// the heddle home first, then one per ancestor directory from the
// filesystem root down to cwd, so the nearest file lands closest to the
// prompt and wins by recency.
func (l *Loader) Files() []string {
	var files []string
	if l.home != "" {
		global := filepath.Join(l.home, "AGENTS.md")
		if _, err := os.Stat(global); err == nil {
			files = append(files, global)
		}
	}
	for _, dir := range ancestorDirs(l.cwd) {
		for _, name := range instructionFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				files = append(files, candidate)
				break
			}
		}
	}
	return files
}

// ancestorDirs lists cwd and its ancestors, root first.
func ancestorDirs(cwd string) []string {
	var dirs []string
	dir := cwd
	for {
		dirs = append(dirs, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

func (l *Loader) skillDirs() []struct{ dir, source string } {
	return []struct{ dir, source string }{
		{filepath.Join(l.cwd, ".heddle", "skills"), "project"},
		{filepath.Join(l.home, "skills"), "global"},
	}
}

// Skills lists discovered skill packs. Project skills shadow global ones of
// the same name.
func (l *Loader) Skills() []Skill {
	seen := make(map[string]bool)
	var skills []Skill
	for _, src := range l.skillDirs() {
		entries, err := os.ReadDir(src.dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(src.dir, e.Name(), "SKILL.md")
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			skill := Skill{
				Name:    e.Name(),
				Path:    path,
				BaseDir: filepath.Join(src.dir, e.Name()),
				Source:  src.source,
			}
			if meta, ok := parseFrontmatter(data); ok {
				skill.Description = meta.Description
				if meta.Name != "" {
					skill.Name = meta.Name
				}
			}
			if seen[skill.Name] {
				continue
			}
			seen[skill.Name] = true
			skills = append(skills, skill)
		}
	}
	return skills
}

// LoadSkill returns a skill's body with frontmatter stripped and {baseDir}
// placeholders replaced by the skill's directory.
func (l *Loader) LoadSkill(name string) (string, bool) {
	for _, s := range l.Skills() {
		if s.Name != name {
			continue
		}
		data, err := os.ReadFile(s.Path)
		if err != nil {
			continue
		}
		body := frontmatterRe.ReplaceAllString(string(data), "")
		body = strings.ReplaceAll(body, "{baseDir}", s.BaseDir)
		return body, true
	}
	return "", false
}

// Summary renders the available skills as the XML block injected into the
// system prompt. Empty when no skills exist.
func (l *Loader) Summary() string {
	skills := l.Skills()
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range skills {
		b.WriteString("  <skill>\n")
		fmt.Fprintf(&b, "    <name>%s</name>\n", escapeXML(s.Name))
		fmt.Fprintf(&b, "    <description>%s</description>\n", escapeXML(s.Description))
		fmt.Fprintf(&b, "    <location>%s</location>\n", escapeXML(s.Path))
		b.WriteString("  </skill>\n")
	}
	b.WriteString("</available_skills>")
	return b.String()
}

// Context composes the full agents context: each instruction file's content
// labeled with its path, then the skills summary. Empty when there is
// nothing to say.
func (l *Loader) Context() string {
	var parts []string
	for _, path := range l.Files() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Project instructions from %s:\n\n%s", path, content))
	}
	if summary := l.Summary(); summary != "" {
		parts = append(parts, summary)
	}
	return strings.Join(parts, "\n\n")
}

// Version returns the context snapshot version.
func (l *Loader) Version() int64 {
	return l.version.Load()
}

// Bump marks the context stale. Called by the watcher.
func (l *Loader) Bump() {
	l.version.Add(1)
}

// WatchTargets returns the directories the watcher should monitor: cwd (for
// instruction file edits), the heddle home, and every skill tier.
func (l *Loader) WatchTargets() []string {
	targets := []string{l.cwd}
	if l.home != "" {
		targets = append(targets, l.home)
	}
	for _, src := range l.skillDirs() {
		targets = append(targets, src.dir)
	}
	return targets
}

var frontmatterRe = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)

type skillMeta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func parseFrontmatter(data []byte) (skillMeta, bool) {
	match := frontmatterRe.FindSubmatch(data)
	if len(match) < 2 {
		return skillMeta{}, false
	}
	var meta skillMeta
	if err := yaml.Unmarshal(match[1], &meta); err != nil {
		return skillMeta{}, false
	}
	return meta, true
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
