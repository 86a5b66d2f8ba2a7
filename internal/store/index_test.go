package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestInsertGetList(t *testing.T) {
	ix := openTestIndex(t)

	rows := []SessionRow{
		{ID: "a", Project: "-work-one", Path: "/j/a.jsonl", Model: "m1", CreatedAt: "2026-08-01T00:00:00Z", LastActive: "2026-08-01T00:00:00Z", Messages: 2},
		{ID: "b", Project: "-work-two", Path: "/j/b.jsonl", Model: "m2", CreatedAt: "2026-08-02T00:00:00Z", LastActive: "2026-08-03T00:00:00Z", Messages: 5},
	}
	for _, r := range rows {
		if err := ix.Insert(r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, ok, err := ix.Get("a")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Model != "m1" || got.Messages != 2 {
		t.Errorf("unexpected row: %+v", got)
	}

	if _, ok, err := ix.Get("missing"); err != nil || ok {
		t.Errorf("missing id should be ok=false, err=nil; got ok=%v err=%v", ok, err)
	}

	list, err := ix.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Errorf("expected most recently active first, got %+v", list)
	}

	n, err := ix.Count()
	if err != nil || n != 2 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestTouchAndDelete(t *testing.T) {
	ix := openTestIndex(t)
	if err := ix.Insert(SessionRow{ID: "s", Path: "/j/s.jsonl", LastActive: "2026-08-01T00:00:00Z", Messages: 1}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := ix.Touch("s", "2026-08-25T12:00:00Z", 7); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, _, err := ix.Get("s")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastActive != "2026-08-25T12:00:00Z" || got.Messages != 7 {
		t.Errorf("touch not applied: %+v", got)
	}

	if err := ix.Delete("s"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := ix.Get("s"); ok {
		t.Error("row should be gone")
	}
	if err := ix.Delete("never-existed"); err != nil {
		t.Errorf("deleting unknown id should not error: %v", err)
	}
}

func TestScanFindsUntrackedJournals(t *testing.T) {
	ix := openTestIndex(t)
	home := t.TempDir()

	mkJournal := func(project, id string) string {
		dir := filepath.Join(home, "projects", project, "sessions")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		path := filepath.Join(dir, id+".jsonl")
		if err := os.WriteFile(path, []byte(`{"type":"session_meta","id":"`+id+`"}`+"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return path
	}

	p1 := mkJournal("-proj-a", "s1")
	mkJournal("-proj-b", "s2")

	// s1 is already indexed; only s2 should be added.
	if err := ix.Insert(SessionRow{ID: "s1", Path: p1}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	parsed := 0
	parse := func(path string) (SessionRow, bool) {
		parsed++
		return SessionRow{Model: "scanned/model"}, true
	}

	added, err := ix.Scan(context.Background(), home, parse)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}
	if parsed != 1 {
		t.Errorf("known journals should not be parsed, parse calls: %d", parsed)
	}

	got, ok, err := ix.Get("s2")
	if err != nil || !ok {
		t.Fatalf("scanned session missing: ok=%v err=%v", ok, err)
	}
	if got.Project != "-proj-b" || got.Model != "scanned/model" {
		t.Errorf("defaults not filled: %+v", got)
	}

	// Second scan: nothing new, and the cache absorbs the stat+parse.
	added, err = ix.Scan(context.Background(), home, parse)
	if err != nil || added != 0 {
		t.Errorf("rescan should add nothing: added=%d err=%v", added, err)
	}
}

func TestScanSkipsUnparseable(t *testing.T) {
	ix := openTestIndex(t)
	home := t.TempDir()
	dir := filepath.Join(home, "projects", "-p", "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.jsonl"), []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	added, err := ix.Scan(context.Background(), home, func(string) (SessionRow, bool) {
		return SessionRow{}, false
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if added != 0 {
		t.Errorf("unparseable journals should be skipped, added=%d", added)
	}
}
