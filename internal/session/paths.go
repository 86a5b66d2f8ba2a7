package session

import (
	"path/filepath"
	"strings"
)

// projectDirReplacer collapses path separators and drive colons so any
// absolute cwd becomes a single flat directory name.
var projectDirReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-")

// EncodeProjectDir turns a working directory into its flat on-disk project
// name, e.g. "/home/amy/src" -> "-home-amy-src".
func EncodeProjectDir(cwd string) string {
	return projectDirReplacer.Replace(cwd)
}

// FilePath returns the journal path for a session:
// <home>/projects/<dash-encoded-cwd>/sessions/<id>.jsonl.
func FilePath(home, cwd, sessionID string) string {
	return filepath.Join(home, "projects", EncodeProjectDir(cwd), "sessions", sessionID+".jsonl")
}
