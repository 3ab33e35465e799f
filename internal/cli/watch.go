package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/exodep/internal/config"
)

// DefaultDebounce is how long watch waits after the last change before
// re-running.
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	ScriptOptions
	Debounce time.Duration

	// afterRun is called after every run once the watches are in place
	// (for testing). n counts runs from 1.
	afterRun func(n int, result *runResult)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{ScriptOptions: ScriptOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch [script]",
		Short: "Re-run a dependency script whenever it changes",
		Long: `Run a dependency script, then watch it, every script it includes and its
config file. Any change re-runs the whole script with a fresh session.

Stop with Ctrl-C.

Example:
  exodep watch
  exodep watch deps/mydeps.exodep --debounce 1s`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.timeoutSet = cmd.Flags().Changed("timeout")
			formatter := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return reportCommandError(formatter, watchScript(commandContext(cmd), opts, scriptArg(args), formatter))
		},
	}

	addScriptFlags(cmd, &opts.ScriptOptions)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "quiet period before re-running after a change")

	return cmd
}

// watchSet tracks the files whose changes trigger a re-run and the
// directories watched for them. Directories are watched rather than files
// so that editors replacing a file by rename are still seen.
type watchSet struct {
	watcher *fsnotify.Watcher
	dirs    map[string]bool
	files   map[string]bool
}

// track replaces the watched files, adding watches for new directories.
func (ws *watchSet) track(files []string) {
	ws.files = make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		ws.files[abs] = true

		dir := filepath.Dir(abs)
		if ws.dirs[dir] {
			continue
		}
		if err := ws.watcher.Add(dir); err != nil {
			slog.Warn("failed to watch directory", "dir", dir, "error", err)
			continue
		}
		ws.dirs[dir] = true
	}
}

func (ws *watchSet) triggers(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return ws.files[filepath.Clean(ev.Name)]
}

// watchScript runs script, then re-runs it after changes until ctx is done.
// Runs never overlap: they happen on the loop goroutine.
func watchScript(ctx context.Context, opts *WatchOptions, script string, out *OutputFormatter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}
	defer watcher.Close()

	ws := &watchSet{watcher: watcher, dirs: map[string]bool{}}
	configPath := opts.Config
	if configPath == "" {
		configPath = config.Locate(script)
	}

	runs := 0
	run := func() {
		runs++
		files := []string{script, configPath}
		result, err := runScript(ctx, &opts.ScriptOptions, script, out)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			if !alreadyReported(err) {
				slog.Error("run failed", "script", script, "error", err)
			}
		default:
			files = append(files, result.Processed...)
		}
		ws.track(files)
		slog.Info("watching for changes", "script", script, "files", len(ws.files), "run", runs)
		if opts.afterRun != nil {
			opts.afterRun(runs, result)
		}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	var pending bool

	run()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ws.triggers(ev) {
				continue
			}
			slog.Debug("script changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
			pending = true

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			fmt.Fprintln(out.GetErrWriter(), "Change detected, re-running", script)
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}
