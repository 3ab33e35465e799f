package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"

	"github.com/roach88/exodep/internal/interp"
	"github.com/roach88/exodep/internal/store"
)

// newEventReporter returns the reporter printing events in format.
func newEventReporter(format string, w io.Writer, colorize bool) interp.Reporter {
	if format == "json" {
		return &jsonReporter{enc: json.NewEncoder(w)}
	}
	return newTextReporter(w, colorize)
}

// textReporter prints one line per sync decision and two per error.
type textReporter struct {
	w         io.Writer
	created   *color.Color
	updated   *color.Color
	unchanged *color.Color
	failed    *color.Color
}

func newTextReporter(w io.Writer, colorize bool) *textReporter {
	r := &textReporter{
		w:         w,
		created:   color.New(color.FgGreen),
		updated:   color.New(color.FgCyan),
		unchanged: color.New(),
		failed:    color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{r.created, r.updated, r.unchanged, r.failed} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *textReporter) Report(ev interp.Event) {
	switch ev.Kind {
	case interp.EventCreated:
		r.created.Fprintln(r.w, "Created...", ev.Path)
	case interp.EventUpdated:
		r.updated.Fprintln(r.w, "Updated...", ev.Path)
	case interp.EventUnchanged:
		r.unchanged.Fprintln(r.w, "Same......", ev.Path)
	case interp.EventError:
		if ev.Line > 0 {
			r.failed.Fprintf(r.w, "Error: %s, line %d:\n", ev.Script, ev.Line)
		} else {
			r.failed.Fprintf(r.w, "Error: %s:\n", ev.Script)
		}
		fmt.Fprintf(r.w, "       %s\n", ev.Err.Message)
	}
}

// eventJSON is the wire form of an event in --format json.
type eventJSON struct {
	Seq    int64      `json:"seq"`
	Kind   string     `json:"kind"`
	Script string     `json:"script"`
	Line   int        `json:"line"`
	Path   string     `json:"path,omitempty"`
	Source string     `json:"source,omitempty"`
	Digest string     `json:"digest,omitempty"`
	Error  *errorJSON `json:"error,omitempty"`
}

type errorJSON struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Variable string `json:"variable,omitempty"`
}

// jsonReporter writes one JSON object per line.
type jsonReporter struct {
	enc *json.Encoder
}

func (r *jsonReporter) Report(ev interp.Event) {
	out := eventJSON{
		Seq:    ev.Seq,
		Kind:   string(ev.Kind),
		Script: ev.Script,
		Line:   ev.Line,
		Path:   ev.Path,
		Source: ev.Source,
		Digest: ev.Digest,
	}
	if ev.Err != nil {
		out.Error = &errorJSON{
			Kind:     string(ev.Err.Kind),
			Message:  ev.Err.Message,
			Variable: ev.Err.Variable,
		}
	}
	if err := r.enc.Encode(out); err != nil {
		slog.Error("failed to write event", "error", err)
	}
}

// ledgerReporter appends events to a run in the ledger. The first write
// failure is kept and later events are dropped.
type ledgerReporter struct {
	ctx   context.Context
	store *store.Store
	runID string
	err   error
}

func (r *ledgerReporter) Report(ev interp.Event) {
	if r.err != nil {
		return
	}
	rec := store.Event{
		RunID:  r.runID,
		Seq:    ev.Seq,
		Kind:   string(ev.Kind),
		Script: ev.Script,
		Line:   ev.Line,
		Path:   ev.Path,
		Source: ev.Source,
		Digest: ev.Digest,
	}
	if ev.Err != nil {
		rec.Message = ev.Err.Message
	}
	// The run context may already be cancelled; the ledger still records
	// what happened before the interrupt.
	if err := r.store.AppendEvent(context.WithoutCancel(r.ctx), rec); err != nil {
		slog.Error("failed to record event", "run", r.runID, "seq", ev.Seq, "error", err)
		r.err = err
	}
}

// multiReporter forwards every event to each reporter in order.
type multiReporter []interp.Reporter

func (m multiReporter) Report(ev interp.Event) {
	for _, r := range m {
		r.Report(ev)
	}
}
