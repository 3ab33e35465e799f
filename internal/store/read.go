package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, script, started_at, finished_at, created, updated, unchanged, errors`

// GetRun returns the run with the given ID.
// Returns ErrRunNotFound if no such run exists.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RunEvents returns the events of a run in seq order.
// Returns an empty slice if the run has no events.
func (s *Store) RunEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, script, line, path, source, digest, message
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run events: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("run events: %w", err)
	}
	return events, nil
}

// PathHistory returns every event recorded for path across runs, oldest
// run first.
func (s *Store) PathHistory(ctx context.Context, path string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.run_id, e.seq, e.kind, e.script, e.line, e.path, e.source, e.digest, e.message
		FROM events e
		JOIN runs r ON r.id = e.run_id
		WHERE e.path = ?
		ORDER BY r.started_at ASC, r.id ASC, e.seq ASC
	`, path)
	if err != nil {
		return nil, fmt.Errorf("path history: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("path history: %w", err)
	}
	return events, nil
}

// scanEvents reads every row and closes rows.
func scanEvents(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.RunID,
			&ev.Seq,
			&ev.Kind,
			&ev.Script,
			&ev.Line,
			&ev.Path,
			&ev.Source,
			&ev.Digest,
			&ev.Message,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  int64
		finished sql.NullInt64
	)
	if err := row.Scan(
		&run.ID,
		&run.Script,
		&started,
		&finished,
		&run.Created,
		&run.Updated,
		&run.Unchanged,
		&run.Errors,
	); err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		run.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	return run, nil
}
