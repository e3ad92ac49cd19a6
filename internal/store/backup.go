package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const backupsToKeep = 7

// Backup writes a consistent snapshot of the database into dir using
// sqlite's VACUUM INTO, then prunes old snapshots. Runs as a low-priority
// scheduled task; the caller logs failures and moves on.
func (s *Store) Backup(ctx context.Context, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("jobhunter-%s.db", now.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	// VACUUM INTO refuses to overwrite; a leftover partial file from a
	// crashed run has to go first.
	_ = os.Remove(path)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?;`, path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	pruneBackups(dir)
	return path, nil
}

func pruneBackups(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".db" {
			names = append(names, e.Name())
		}
	}
	if len(names) <= backupsToKeep {
		return
	}
	sort.Strings(names) // timestamped names sort chronologically
	for _, n := range names[:len(names)-backupsToKeep] {
		_ = os.Remove(filepath.Join(dir, n))
	}
}
