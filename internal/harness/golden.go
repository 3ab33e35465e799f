package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RenderTrace renders a result as stable text: the trace grouped by run,
// then the final workspace. Digests are left out so that a golden file
// only changes when observable behavior does.
func RenderTrace(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario %s\n", name)

	run := 0
	for _, ev := range result.Trace {
		if ev.Run != run {
			run = ev.Run
			fmt.Fprintf(&buf, "\nrun %d\n", run)
		}
		switch {
		case ev.Type == TraceTypeExec:
			fmt.Fprintf(&buf, "  exec [%s] %s\n", ev.Dir, ev.Command)
		case ev.ErrorKind != "":
			fmt.Fprintf(&buf, "  %d error %s:%d %s: %s\n", ev.Seq, ev.Script, ev.Line, ev.ErrorKind, ev.Message)
		default:
			fmt.Fprintf(&buf, "  %d %s %s:%d %s <- %s\n", ev.Seq, ev.Kind, ev.Script, ev.Line, ev.Path, ev.Source)
		}
	}

	names := make([]string, 0, len(result.Files))
	for name := range result.Files {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintf(&buf, "\nfiles\n")
	for _, name := range names {
		fmt.Fprintf(&buf, "  %s %q\n", name, result.Files[name])
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its rendered trace against
// fixtureDir/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// fixtureDir should be absolute: scenarios run in the working directory,
// which tests point at a temporary directory.
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, fixtureDir string) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result, fixtureDir)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result, fixtureDir string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, RenderTrace(name, result))
}

// GoldenPath returns dir/{name}.golden, the file AssertGolden compares with.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// WriteGolden renders result into its golden file under dir.
func WriteGolden(dir, name string, result *Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, name), RenderTrace(name, result), 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// MatchGolden reports whether result renders exactly as its golden file
// under dir.
func MatchGolden(dir, name string, result *Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(dir, name))
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(want, RenderTrace(name, result)), nil
}
