package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/exodep/internal/filesync"
	"github.com/roach88/exodep/internal/interp"
	"github.com/roach88/exodep/internal/testutil"
)

// Run executes a scenario in the current working directory and evaluates
// its assertions.
//
// Execution flow:
//  1. Write the scenario files
//  2. For each run step: apply its changes, then run the script in a fresh session
//  3. Snapshot the final workspace
//  4. Evaluate assertions
//
// Returns an error only when the scenario cannot be executed; assertion
// failures are reported in the Result.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("scenario is nil")
	}

	result := NewResult()
	if err := writeFiles(s.Files); err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp("", "exodep-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	fetcher := testutil.NewFakeFetcher(s.Remote)
	for i, step := range s.runs() {
		run := i + 1
		for uri, content := range step.Remote {
			fetcher.Set(uri, content)
		}
		if err := writeFiles(step.Files); err != nil {
			return nil, fmt.Errorf("run %d: %w", run, err)
		}
		if err := runOnce(ctx, s, run, fetcher, filesync.New(staging), result); err != nil {
			return nil, fmt.Errorf("run %d: %w", run, err)
		}
	}
	result.Fetched = fetcher.Calls()

	files, err := snapshot(".")
	if err != nil {
		return nil, err
	}
	result.Files = files

	evaluateAssertions(s.Assertions, result)
	return result, nil
}

func runOnce(ctx context.Context, s *Scenario, run int, fetcher *testutil.FakeFetcher, syncer *filesync.Syncer, result *Result) error {
	runner := &testutil.RecordingRunner{
		OnRun: func(c testutil.RunCall) {
			result.Trace = append(result.Trace, TraceEvent{
				Run:     run,
				Type:    TraceTypeExec,
				Command: c.Command,
				Dir:     filepath.ToSlash(c.Dir),
			})
		},
	}
	reporter := interp.ReporterFunc(func(ev interp.Event) {
		result.Trace = append(result.Trace, traceFromEvent(run, ev))
	})

	session := interp.NewSession(
		interp.WithFetcher(fetcher),
		interp.WithSyncer(syncer),
		interp.WithReporter(reporter),
		interp.WithCommandRunner(runner),
		interp.WithPlatform(platform(s)),
		interp.WithVariables(s.Variables),
		interp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	// An unreadable script is reported as an event; it is not a harness failure.
	if err := session.RunFile(ctx, s.script()); err != nil && interp.KindOf(err) != interp.KindOpenFailure {
		return err
	}
	return nil
}

func traceFromEvent(run int, ev interp.Event) TraceEvent {
	te := TraceEvent{
		Run:    run,
		Type:   TraceTypeEvent,
		Seq:    ev.Seq,
		Kind:   string(ev.Kind),
		Script: filepath.ToSlash(ev.Script),
		Line:   ev.Line,
		Path:   filepath.ToSlash(ev.Path),
		Source: ev.Source,
	}
	if ev.Err != nil {
		te.ErrorKind = string(ev.Err.Kind)
		te.Message = ev.Err.Message
	}
	return te
}

func platform(s *Scenario) string {
	if s.Platform == "" {
		return "linux"
	}
	return s.Platform
}

func writeFiles(files map[string]string) error {
	for name, content := range files {
		path := filepath.FromSlash(name)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// snapshot reads every regular file under root.
func snapshot(root string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(path)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot workspace: %w", err)
	}
	return files, nil
}
