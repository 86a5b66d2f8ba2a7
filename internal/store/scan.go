package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// scanParallelism bounds concurrent journal header reads during Scan.
const scanParallelism = 4

// MetaFunc parses one journal file into an index row. ok=false skips the
// file (unreadable, no header). Kept as a callback so the store stays
// independent of the journal format.
type MetaFunc func(path string) (SessionRow, bool)

// Scan walks <home>/projects/*/sessions/*.jsonl and inserts any journal the
// index does not know yet. Headers are parsed with bounded parallelism and
// cached by path+mtime, so rescans only touch changed files. Returns the
// number of sessions added.
func (ix *Index) Scan(ctx context.Context, home string, parse MetaFunc) (int, error) {
	pattern := filepath.Join(home, "projects", "*", "sessions", "*.jsonl")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("glob journals: %w", err)
	}

	known, err := ix.knownPaths()
	if err != nil {
		return 0, err
	}

	var (
		mu    sync.Mutex
		added int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanParallelism)

	for _, path := range paths {
		if known[path] {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, ok := ix.cachedMeta(path, parse)
			if !ok {
				return nil
			}
			if err := ix.Insert(row); err != nil {
				return fmt.Errorf("index %s: %w", path, err)
			}
			mu.Lock()
			added++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return added, err
	}
	return added, nil
}

func (ix *Index) knownPaths() (map[string]bool, error) {
	rows, err := ix.List()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.Path] = true
	}
	return known, nil
}

func (ix *Index) cachedMeta(path string, parse MetaFunc) (SessionRow, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return SessionRow{}, false
	}
	key := path + "|" + info.ModTime().UTC().Format("20060102150405.000000000")
	if row, ok := ix.metaCache.Get(key); ok {
		return row, true
	}
	row, ok := parse(path)
	if !ok {
		return SessionRow{}, false
	}
	if row.Project == "" {
		// projects/<encoded>/sessions/<id>.jsonl
		row.Project = filepath.Base(filepath.Dir(filepath.Dir(path)))
	}
	if row.Path == "" {
		row.Path = path
	}
	if row.ID == "" {
		row.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ix.metaCache.Add(key, row)
	return row, true
}
