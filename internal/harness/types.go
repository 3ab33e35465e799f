package harness

import "fmt"

// Trace entry types.
const (
	TraceTypeEvent = "event"
	TraceTypeExec  = "exec"
)

// TraceEvent is one entry of a scenario trace: an interpreter event or a
// recorded exec.
type TraceEvent struct {
	// Run is the 1-based run the entry belongs to.
	Run int `json:"run"`

	// Type is "event" or "exec".
	Type string `json:"type"`

	// Seq is the interpreter sequence number of an event. Execs have none.
	Seq int64 `json:"seq,omitempty"`

	Kind   string `json:"kind,omitempty"`
	Script string `json:"script,omitempty"`
	Line   int    `json:"line,omitempty"`
	Path   string `json:"path,omitempty"`
	Source string `json:"source,omitempty"`

	// ErrorKind and Message describe an error event.
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`

	// Command and Dir describe an exec.
	Command string `json:"command,omitempty"`
	Dir     string `json:"dir,omitempty"`
}

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true if all assertions passed.
	Pass bool

	// Trace contains every event and exec, in order, across all runs.
	Trace []TraceEvent

	// Files is the final workspace, keyed by slash-separated relative path.
	Files map[string]string

	// Fetched lists every URI requested, in order, across all runs.
	Fetched []string

	// Errors contains assertion failure messages.
	Errors []string
}

// NewResult creates a passing result with empty collections.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Files: make(map[string]string),
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
