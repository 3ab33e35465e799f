package store

import (
	"context"
	"fmt"
	"time"
)

// BeginRun records the start of a run of script and returns it with a
// fresh ID.
func (s *Store) BeginRun(ctx context.Context, script string, startedAt time.Time) (Run, error) {
	run := Run{
		ID:        s.runID.Generate(),
		Script:    script,
		StartedAt: startedAt.UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, script, started_at)
		VALUES (?, ?, ?)
	`,
		run.ID,
		run.Script,
		run.StartedAt.UnixNano(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// AppendEvent inserts an event into its run.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - re-appending
// the same event is silently ignored.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) AppendEvent(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, kind, script, line, path, source, digest, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		ev.Kind,
		ev.Script,
		ev.Line,
		ev.Path,
		ev.Source,
		ev.Digest,
		ev.Message,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// FinishRun records the end of a run and its summary counts.
// Returns ErrRunNotFound if the run was never begun.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, counts Counts) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, created = ?, updated = ?, unchanged = ?, errors = ?
		WHERE id = ?
	`,
		finishedAt.UTC().UnixNano(),
		counts.Created,
		counts.Updated,
		counts.Unchanged,
		counts.Errors,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
