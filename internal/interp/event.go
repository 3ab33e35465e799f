package interp

import "github.com/roach88/exodep/internal/filesync"

// EventKind identifies what an Event reports.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventUpdated   EventKind = "updated"
	EventUnchanged EventKind = "unchanged"
	EventError     EventKind = "error"
)

func eventKindFor(o filesync.Outcome) EventKind {
	switch o {
	case filesync.Created:
		return EventCreated
	case filesync.Updated:
		return EventUpdated
	default:
		return EventUnchanged
	}
}

// Event is one sync decision or one error. Every decision and every error
// is reported exactly once.
type Event struct {
	// Seq orders events within a session, starting at 1.
	Seq int64

	Kind   EventKind
	Script string
	Line   int

	// Path is the destination file of a sync decision.
	Path string

	// Source is the URI or local path the content came from.
	Source string

	// Digest is the BLAKE3 digest of the synced content.
	Digest string

	// Err is set for EventError.
	Err *Error
}

// Reporter receives events as they happen.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(ev Event) { f(ev) }

// Collector is a Reporter that keeps every event in order.
type Collector struct {
	Events []Event
}

func (c *Collector) Report(ev Event) {
	c.Events = append(c.Events, ev)
}

// Errors returns the reported errors in order.
func (c *Collector) Errors() []*Error {
	var errs []*Error
	for _, ev := range c.Events {
		if ev.Kind == EventError {
			errs = append(errs, ev.Err)
		}
	}
	return errs
}

// Summary counts the events of a session by kind.
type Summary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

func (s *Summary) add(kind EventKind) {
	switch kind {
	case EventCreated:
		s.Created++
	case EventUpdated:
		s.Updated++
	case EventUnchanged:
		s.Unchanged++
	case EventError:
		s.Errors++
	}
}
