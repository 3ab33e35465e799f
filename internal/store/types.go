package store

import "time"

// Run is one execution of a top-level script.
type Run struct {
	ID        string
	Script    string
	StartedAt time.Time

	// FinishedAt is zero while the run is in progress or if it was
	// interrupted before FinishRun.
	FinishedAt time.Time

	Counts
}

// Finished reports whether FinishRun was recorded.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Counts are the per-kind event totals of a run.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

// Event is one reported interpreter event.
type Event struct {
	RunID   string
	Seq     int64
	Kind    string
	Script  string
	Line    int
	Path    string
	Source  string
	Digest  string
	Message string
}
