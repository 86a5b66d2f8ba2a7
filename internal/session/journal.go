// Package session owns the durable side of a conversation: the append-only
// JSONL journal, project-scoped session paths, and the setup that assembles
// a ready-to-run session from config, credentials, and tools.
package session

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/heddlehq/heddle/internal/provider"
)

const metaType = "session_meta"

// Meta is the journal header line. Extra holds any additional fields found
// on read; they survive a write round-trip.
type Meta struct {
	ID      string
	Cwd     string
	Model   string
	Created string
	Version string
	Extra   map[string]any
}

func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+6)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["type"] = metaType
	out["id"] = m.ID
	out["cwd"] = m.Cwd
	out["model"] = m.Model
	out["created"] = m.Created
	out["heddle_version"] = m.Version
	return json.Marshal(out)
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	m.ID = str("id")
	m.Cwd = str("cwd")
	m.Model = str("model")
	m.Created = str("created")
	m.Version = str("heddle_version")
	for _, key := range []string{"type", "id", "cwd", "model", "created", "heddle_version"} {
		delete(raw, key)
	}
	if len(raw) > 0 {
		m.Extra = raw
	} else {
		m.Extra = nil
	}
	return nil
}

// Journal appends session lines to one JSONL file. Writes are whole lines,
// so concurrent readers always see a consistent prefix.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal ensures the parent directory exists and returns a journal for
// path. The file itself is created on first write.
func NewJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Journal{path: path}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// WriteMeta appends the session_meta header line.
func (j *Journal) WriteMeta(meta Meta) error {
	return j.appendLine(meta)
}

// AppendMessage appends one conversation message stamped with the write time.
func (j *Journal) AppendMessage(msg provider.Message) error {
	entry := struct {
		provider.Message
		Timestamp string `json:"timestamp"`
	}{Message: msg, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	return j.appendLine(entry)
}

func (j *Journal) appendLine(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(payload, '\n'))
	return err
}

// LoadSession reads every message line of a journal in append order. The
// session_meta header, blank lines, and lines that do not parse are skipped.
// A missing file is an empty session.
func LoadSession(path string) ([]provider.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var messages []provider.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if probe.Type == metaType {
			continue
		}
		var msg provider.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// LoadMeta parses the first line of a journal. It returns nil when the file
// is missing or the first line is not a session_meta header.
func LoadMeta(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	if !scanner.Scan() {
		return nil, scanner.Err()
	}
	line := scanner.Bytes()
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil || probe.Type != metaType {
		return nil, nil
	}
	var meta Meta
	if err := json.Unmarshal(line, &meta); err != nil {
		return nil, nil
	}
	return &meta, nil
}
