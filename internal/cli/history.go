package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/exodep/internal/config"
	"github.com/roach88/exodep/internal/interp"
	"github.com/roach88/exodep/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Config string
	Ledger string
	Run    string
	Path   string
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show runs recorded in the ledger",
		Long: `Show runs recorded in the ledger, newest first. With --run, show the events
of one run in order. With --path, show every recorded decision for one
destination file across runs.

Example:
  exodep history --ledger .exodep/ledger.db
  exodep history --run 01920c4e-7d1a-7cc3-8f3e-3b8d9d3f2a10
  exodep history --path include/parser.h --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "config file (default: "+config.DefaultFileName+" in the current directory)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "SQLite ledger to read")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the events of this run")
	cmd.Flags().StringVar(&opts.Path, "path", "", "show the history of this destination file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.MarkFlagsMutuallyExclusive("run", "path")

	return cmd
}

func showHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return reportCommandError(formatter, readHistory(commandContext(cmd), opts, formatter))
}

func readHistory(ctx context.Context, opts *HistoryOptions, formatter *OutputFormatter) error {
	cfg, cfgDir, err := loadScriptConfig(opts.Config, interp.DefaultScript)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	path := ledgerPath(opts.Ledger, cfg.Ledger, cfgDir)
	if path == "" {
		return NewExitError(ExitCommandError, "no ledger configured: use --ledger or set ledger in "+config.DefaultFileName)
	}

	st, err := openLedger(path, nil, false)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case opts.Run != "":
		run, err := st.GetRun(ctx, opts.Run)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		events, err := st.RunEvents(ctx, opts.Run)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read events", err)
		}
		if opts.Format == "json" {
			return formatter.Success(runDetailJSON{Run: toRunJSON(run), Events: toEventsJSON(events)})
		}
		writeRun(formatter.Writer, run)
		writeEvents(formatter.Writer, events)
		return nil

	case opts.Path != "":
		events, err := st.PathHistory(ctx, opts.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		if opts.Format == "json" {
			return formatter.Success(toEventsJSON(events))
		}
		for _, ev := range events {
			fmt.Fprintf(formatter.Writer, "%s  %-9s  %s:%d  %s\n", ev.RunID, ev.Kind, ev.Script, ev.Line, shortDigest(ev.Digest))
		}
		return nil

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			out := make([]runJSON, len(runs))
			for i, run := range runs {
				out[i] = toRunJSON(run)
			}
			return formatter.Success(out)
		}
		if len(runs) == 0 {
			fmt.Fprintln(formatter.Writer, "No runs recorded.")
		}
		for _, run := range runs {
			writeRun(formatter.Writer, run)
		}
		return nil
	}
}

const timeLayout = time.RFC3339

func writeRun(w io.Writer, run store.Run) {
	status := fmt.Sprintf("created=%d updated=%d unchanged=%d errors=%d",
		run.Created, run.Updated, run.Unchanged, run.Errors)
	if !run.Finished() {
		status = "unfinished"
	}
	fmt.Fprintf(w, "%s  %s  %s  %s\n", run.ID, run.StartedAt.Format(timeLayout), run.Script, status)
}

func writeEvents(w io.Writer, events []store.Event) {
	for _, ev := range events {
		detail := ev.Path
		if ev.Kind == string(interp.EventError) {
			detail = ev.Message
		}
		fmt.Fprintf(w, "%4d  %-9s  %s:%d  %s\n", ev.Seq, ev.Kind, ev.Script, ev.Line, detail)
	}
}

// shortDigest abbreviates a hex digest for text output.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

type runJSON struct {
	ID         string       `json:"id"`
	Script     string       `json:"script"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Counts     store.Counts `json:"counts"`
}

type runDetailJSON struct {
	Run    runJSON           `json:"run"`
	Events []ledgerEventJSON `json:"events"`
}

type ledgerEventJSON struct {
	RunID   string `json:"run_id"`
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Script  string `json:"script"`
	Line    int    `json:"line"`
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"`
	Digest  string `json:"digest,omitempty"`
	Message string `json:"message,omitempty"`
}

func toRunJSON(run store.Run) runJSON {
	out := runJSON{
		ID:        run.ID,
		Script:    run.Script,
		StartedAt: run.StartedAt,
		Counts:    run.Counts,
	}
	if run.Finished() {
		finished := run.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

func toEventsJSON(events []store.Event) []ledgerEventJSON {
	out := make([]ledgerEventJSON, len(events))
	for i, ev := range events {
		out[i] = ledgerEventJSON(ev)
	}
	return out
}
