package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp dir with fixed run IDs.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// baseTime is a fixed wall clock for deterministic rows.
var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// beginTestRun begins a run started offset after baseTime.
func beginTestRun(t *testing.T, s *Store, script string, offset time.Duration) Run {
	t.Helper()
	run, err := s.BeginRun(context.Background(), script, baseTime.Add(offset))
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return run
}
