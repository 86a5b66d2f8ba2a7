// Package store maintains the sqlite index of sessions under the heddle
// home, so listing and doctor checks do not replay every journal file.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	_ "modernc.org/sqlite"
)

// SessionRow is one indexed session.
type SessionRow struct {
	ID         string `json:"id"`
	Project    string `json:"project"` // dash-encoded cwd
	Path       string `json:"path"`    // journal file
	Model      string `json:"model"`
	CreatedAt  string `json:"created_at"`
	LastActive string `json:"last_active"`
	Messages   int    `json:"messages"`
}

// Index wraps the sessions table. Safe for concurrent use.
type Index struct {
	db *sql.DB
	mu sync.RWMutex

	// metaCache remembers scanned journal headers by "path|mtime" so
	// repeated Scan calls skip unchanged files.
	metaCache *expirable.LRU[string, SessionRow]
}

// Open opens (or creates) the index database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ix := &Index{
		db:        db,
		metaCache: expirable.NewLRU[string, SessionRow](256, nil, time.Hour),
	}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("sessions index opened", "channel", "session", "path", path)
	return ix, nil
}

func (ix *Index) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT '',
			last_active TEXT NOT NULL DEFAULT '',
			messages INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project)`,
	}
	for _, stmt := range stmts {
		if _, err := ix.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 50)], err)
		}
	}
	return nil
}

// Insert records a new session, replacing any stale row with the same id.
func (ix *Index) Insert(row SessionRow) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, err := ix.db.Exec(`INSERT OR REPLACE INTO sessions
		(id, project, path, model, created_at, last_active, messages)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Project, row.Path, row.Model, row.CreatedAt, row.LastActive, row.Messages)
	return err
}

// Touch bumps a session's last_active timestamp and message count.
func (ix *Index) Touch(id, lastActive string, messages int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, err := ix.db.Exec(`UPDATE sessions SET last_active = ?, messages = ? WHERE id = ?`,
		lastActive, messages, id)
	return err
}

// Get returns one session by id.
func (ix *Index) Get(id string) (SessionRow, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var row SessionRow
	err := ix.db.QueryRow(`SELECT id, project, path, model, created_at, last_active, messages
		FROM sessions WHERE id = ?`, id).
		Scan(&row.ID, &row.Project, &row.Path, &row.Model, &row.CreatedAt, &row.LastActive, &row.Messages)
	if err == sql.ErrNoRows {
		return SessionRow{}, false, nil
	}
	if err != nil {
		return SessionRow{}, false, err
	}
	return row, true, nil
}

// List returns all sessions, most recently active first.
func (ix *Index) List() ([]SessionRow, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rows, err := ix.db.Query(`SELECT id, project, path, model, created_at, last_active, messages
		FROM sessions ORDER BY last_active DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.ID, &row.Project, &row.Path, &row.Model,
			&row.CreatedAt, &row.LastActive, &row.Messages); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Delete removes a session row. Deleting an unknown id is not an error.
func (ix *Index) Delete(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, err := ix.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Count returns the number of indexed sessions.
func (ix *Index) Count() (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var n int
	err := ix.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}
