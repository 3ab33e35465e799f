package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, describe(ev))
		}
	}

	return buf.String()
}

// describe renders one trace entry on a single line.
func describe(ev TraceEvent) string {
	switch {
	case ev.Type == TraceTypeExec:
		return fmt.Sprintf("run %d exec [%s] %s", ev.Run, ev.Dir, ev.Command)
	case ev.ErrorKind != "":
		return fmt.Sprintf("run %d %s:%d %s %s", ev.Run, ev.Script, ev.Line, ev.ErrorKind, ev.Message)
	}
	return fmt.Sprintf("run %d %s:%d %s %s", ev.Run, ev.Script, ev.Line, ev.Kind, ev.Path)
}

// evaluateAssertions checks every assertion, recording failures in result.
func evaluateAssertions(assertions []Assertion, result *Result) {
	for i, a := range assertions {
		if err := checkAssertion(a, result); err != nil {
			result.AddError("assertion %d: %v", i, err)
		}
	}
}

func checkAssertion(a Assertion, result *Result) error {
	switch a.Type {
	case AssertEventContains:
		return assertEventContains(result.Trace, a)
	case AssertEventCount:
		return assertEventCount(result.Trace, a)
	case AssertPathOrder:
		return assertPathOrder(result.Trace, a)
	case AssertExecOrder:
		return assertExecOrder(result.Trace, a)
	case AssertFileContent:
		return assertFileContent(result.Files, a)
	case AssertFileAbsent:
		return assertFileAbsent(result.Files, a)
	case AssertFetched:
		return assertFetched(result.Fetched, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// matchEvent reports whether ev satisfies the non-zero fields of a.
func matchEvent(ev TraceEvent, a Assertion) bool {
	if ev.Type != TraceTypeEvent || ev.Kind != a.Kind {
		return false
	}
	if a.Run != 0 && ev.Run != a.Run {
		return false
	}
	if a.Path != "" && ev.Path != a.Path {
		return false
	}
	if a.Line != 0 && ev.Line != a.Line {
		return false
	}
	return a.Error == "" || ev.ErrorKind == a.Error
}

// assertEventContains checks that some event matches the assertion's
// kind, path, line, error kind and run.
func assertEventContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matchEvent(ev, a) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("%s event%s", a.Kind, qualifiers(a)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventCount checks the exact number of events of a kind.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchEvent(ev, a) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d %s event(s)%s", a.Count, a.Kind, qualifiers(a)),
		Actual:   fmt.Sprintf("%d", count),
		Trace:    trace,
	}
}

// assertPathOrder checks that the first sync decision for each path appears
// in the listed order. Other events may intervene.
func assertPathOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if ev.Type != TraceTypeEvent || ev.Path == "" {
			continue
		}
		if a.Run != 0 && ev.Run != a.Run {
			continue
		}
		if _, seen := positions[ev.Path]; !seen {
			positions[ev.Path] = i
		}
	}

	for _, p := range a.Paths {
		if _, ok := positions[p]; !ok {
			return &AssertionError{
				Type:     AssertPathOrder,
				Expected: fmt.Sprintf("path %s in trace", p),
				Actual:   "no sync decision for path",
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Paths); i++ {
		prev, cur := a.Paths[i-1], a.Paths[i]
		if positions[prev] > positions[cur] {
			return &AssertionError{
				Type:     AssertPathOrder,
				Expected: fmt.Sprintf("%s before %s", prev, cur),
				Actual:   fmt.Sprintf("%s at %d, %s at %d", prev, positions[prev]+1, cur, positions[cur]+1),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertExecOrder checks the recorded exec commands exactly.
func assertExecOrder(trace []TraceEvent, a Assertion) error {
	var commands []string
	for _, ev := range trace {
		if ev.Type != TraceTypeExec {
			continue
		}
		if a.Run != 0 && ev.Run != a.Run {
			continue
		}
		commands = append(commands, ev.Command)
	}
	if slices.Equal(commands, a.Commands) {
		return nil
	}

	return &AssertionError{
		Type:     AssertExecOrder,
		Expected: fmt.Sprintf("%q", a.Commands),
		Actual:   fmt.Sprintf("%q", commands),
		Trace:    trace,
	}
}

func assertFileContent(files map[string]string, a Assertion) error {
	content, ok := files[a.Path]
	if !ok {
		return &AssertionError{
			Type:     AssertFileContent,
			Expected: fmt.Sprintf("file %s", a.Path),
			Actual:   "file does not exist",
		}
	}
	if content != *a.Content {
		return &AssertionError{
			Type:     AssertFileContent,
			Expected: fmt.Sprintf("%s = %q", a.Path, *a.Content),
			Actual:   fmt.Sprintf("%q", content),
		}
	}
	return nil
}

func assertFileAbsent(files map[string]string, a Assertion) error {
	prefix := strings.TrimSuffix(a.Path, "/") + "/"
	for name := range files {
		if name == a.Path || strings.HasPrefix(name, prefix) {
			return &AssertionError{
				Type:     AssertFileAbsent,
				Expected: fmt.Sprintf("nothing at %s", a.Path),
				Actual:   fmt.Sprintf("found %s", name),
			}
		}
	}
	return nil
}

func assertFetched(fetched []string, a Assertion) error {
	if slices.Contains(fetched, a.URI) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFetched,
		Expected: fmt.Sprintf("request for %s", a.URI),
		Actual:   fmt.Sprintf("requested %q", fetched),
	}
}

func qualifiers(a Assertion) string {
	var parts []string
	if a.Run != 0 {
		parts = append(parts, fmt.Sprintf("run=%d", a.Run))
	}
	if a.Path != "" {
		parts = append(parts, "path="+a.Path)
	}
	if a.Line != 0 {
		parts = append(parts, fmt.Sprintf("line=%d", a.Line))
	}
	if a.Error != "" {
		parts = append(parts, "error="+a.Error)
	}
	if len(parts) == 0 {
		return ""
	}
	return " with " + strings.Join(parts, " ")
}
