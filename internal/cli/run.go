package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/exodep/internal/config"
	"github.com/roach88/exodep/internal/fetch"
	"github.com/roach88/exodep/internal/interp"
	"github.com/roach88/exodep/internal/store"
)

// ScriptOptions holds flags for commands that run a script.
type ScriptOptions struct {
	*RootOptions
	Config  string
	Vars    []string
	Ledger  string
	Timeout time.Duration

	// timeoutSet records whether --timeout was given, so that an explicit
	// 0 can disable the timeout instead of selecting the default.
	timeoutSet bool

	// RunIDs allows overriding ledger run IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.IDGenerator

	// Now allows overriding the wall clock stamped on ledger runs (for testing).
	Now func() time.Time

	// Runner allows overriding how exec commands are run (for testing).
	Runner interp.CommandRunner
}

// addScriptFlags registers the flags shared by every script-running command.
func addScriptFlags(cmd *cobra.Command, opts *ScriptOptions) {
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "config file (default: "+config.DefaultFileName+" next to the script)")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "set a script variable (name=value, repeatable)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite ledger")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", fetch.DefaultTimeout, "per-request fetch timeout (0 disables)")
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScriptOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Run a dependency script",
		Long: `Run a dependency script, fetching every file it names and updating local
copies whose content changed.

Exit status is 0 when the script ran cleanly, 1 when it reported errors and
2 when it could not be run at all.

Example:
  exodep run
  exodep run deps/mydeps.exodep --var strand=v2 --ledger .exodep/ledger.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, args)
		},
	}

	addScriptFlags(cmd, opts)

	return cmd
}

// runCommand is the RunE shared by the root and run commands.
func runCommand(cmd *cobra.Command, opts *ScriptOptions, args []string) error {
	opts.timeoutSet = cmd.Flags().Changed("timeout")
	script := scriptArg(args)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	result, err := runScript(commandContext(cmd), opts, script, formatter)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	return result.exitError()
}

func scriptArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return interp.DefaultScript
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runResult is the outcome of one script run.
type runResult struct {
	RunID     string         `json:"run_id,omitempty"`
	Script    string         `json:"script"`
	Summary   interp.Summary `json:"summary"`
	Processed []string       `json:"processed"`
}

// exitError maps reported script errors to ExitFailure.
func (r *runResult) exitError() error {
	if r.Summary.Errors == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %d error(s) reported", r.Script, r.Summary.Errors))
}

// runScript runs script once with a fresh session. A non-nil error means the
// script could not be run; errors reported by the script are in the result.
func runScript(ctx context.Context, opts *ScriptOptions, script string, out *OutputFormatter) (*runResult, error) {
	cfg, cfgDir, err := loadScriptConfig(opts.Config, script)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	vars, err := config.ParseAssignments(opts.Vars)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --var", err)
	}

	fetchOpts := cfg.Fetch.Options()
	if opts.timeoutSet {
		fetchOpts.Timeout = opts.Timeout
		if fetchOpts.Timeout == 0 {
			fetchOpts.Timeout = -1
		}
	}

	colorize := !opts.NoColor && !color.NoColor
	reporters := multiReporter{newEventReporter(opts.Format, out.Writer, colorize)}

	sessionOpts := []interp.Option{
		interp.WithFetcher(fetch.New(fetchOpts)),
		interp.WithLogger(slog.Default()),
		interp.WithHosting(cfg.Hosting),
		interp.WithVariables(cfg.Variables),
		interp.WithVariables(vars),
		interp.WithMaxExpansions(cfg.MaxExpansions),
	}
	if opts.Runner != nil {
		sessionOpts = append(sessionOpts, interp.WithCommandRunner(opts.Runner))
	}

	result := &runResult{Script: script}

	ledgerPath := ledgerPath(opts.Ledger, cfg.Ledger, cfgDir)
	var (
		st     *store.Store
		ledger *ledgerReporter
	)
	if ledgerPath != "" {
		st, err = openLedger(ledgerPath, opts.RunIDs, true)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing ledger", "error", closeErr)
			}
		}()

		run, err := st.BeginRun(ctx, script, opts.now())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to record run", err)
		}
		result.RunID = run.ID
		ledger = &ledgerReporter{ctx: ctx, store: st, runID: run.ID}
		reporters = append(reporters, ledger)
		slog.Debug("ledger run started", "run", run.ID, "ledger", ledgerPath)
	}

	session := interp.NewSession(append(sessionOpts, interp.WithReporter(reporters))...)
	runErr := session.RunFile(ctx, script)
	result.Summary = session.Summary()
	result.Processed = session.Processed()

	if st != nil {
		counts := store.Counts(result.Summary)
		if err := st.FinishRun(context.WithoutCancel(ctx), result.RunID, opts.now(), counts); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to record run", err)
		}
		if ledger.err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to record event", ledger.err)
		}
	}

	out.VerboseLog("%s: created %d, updated %d, unchanged %d, errors %d",
		script, result.Summary.Created, result.Summary.Updated, result.Summary.Unchanged, result.Summary.Errors)

	if runErr != nil {
		if errors.Is(runErr, interp.ErrOpenFailure) {
			// Already written as an error event.
			exitErr := WrapExitError(ExitCommandError, "failed to run script", runErr)
			exitErr.Reported = true
			return nil, exitErr
		}
		return nil, WrapExitError(ExitCommandError, "script interrupted", runErr)
	}
	return result, nil
}

func (o *ScriptOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// loadScriptConfig loads the explicit config file, or the optional default
// one next to script. It also returns the directory the config was read
// from so relative paths in it can be resolved.
func loadScriptConfig(explicit, script string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.Load(explicit)
		return cfg, filepath.Dir(explicit), err
	}
	path := config.Locate(script)
	cfg, err := config.LoadOptional(path)
	return cfg, filepath.Dir(path), err
}

// ledgerPath picks the --ledger flag over the config value. A relative
// config value is relative to the config file.
func ledgerPath(flag, configured, cfgDir string) string {
	if flag != "" {
		return flag
	}
	if configured == "" || filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(cfgDir, configured)
}

// openLedger opens the ledger at path. With create unset a missing ledger
// is an error instead of being created empty.
func openLedger(path string, ids store.IDGenerator, create bool) (*store.Store, error) {
	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create ledger directory", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "ledger not found", err)
	}

	var opts []store.Option
	if ids != nil {
		opts = append(opts, store.WithIDGenerator(ids))
	}
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, nil
}
