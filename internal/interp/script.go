package interp

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// script is the context of one script file or in-memory script.
type script struct {
	session *Session
	path    string
	line    int

	// vars is private to this script; includes get a copy.
	vars map[string]string

	// uriTemplate starts at the default provider in every script and is
	// never inherited.
	uriTemplate string

	// versions is the strand table, in source order.
	versions []strandEntry

	// changed is set once this script creates or updates a file.
	changed bool
}

// strandEntry maps a set of strand aliases to the label used in URIs.
type strandEntry struct {
	aliases string
	label   string
}

var commentPattern = regexp.MustCompile(`\s*#.*`)

// processLine dispatches one raw line. It is also the entry point for the
// payload of conditional commands.
func (sc *script) processLine(ctx context.Context, line string) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	line = commentPattern.ReplaceAllString(line, "")
	if strings.TrimSpace(line) == "" {
		return
	}

	for _, cmd := range sc.session.commands {
		if m := cmd.pattern.FindStringSubmatch(line); m != nil {
			sc.session.logger.Debug("dispatch", "script", sc.path, "line", sc.line, "command", cmd.name)
			cmd.run(ctx, sc, m)
			return
		}
	}
	sc.fail(KindUnrecognizedCommand, "unrecognised command: %s", line)
}

// report attributes e to the current line and emits it.
func (sc *script) report(e *Error) {
	e.Script = sc.path
	e.Line = sc.line
	sc.session.emit(Event{
		Kind:   EventError,
		Script: sc.path,
		Line:   sc.line,
		Err:    e,
	})
}

func (sc *script) fail(kind ErrorKind, format string, args ...any) {
	sc.report(newError(kind, format, args...))
}

// reportErr emits err, keeping its kind when it is already an *Error.
func (sc *script) reportErr(kind ErrorKind, err error, format string, args ...any) {
	if e, ok := err.(*Error); ok {
		e.Message = fmt.Sprintf(format, args...) + ": " + e.Message
		sc.report(e)
		return
	}
	sc.report(wrapError(kind, err, format, args...))
}

// markChanged records a created or updated file in this script and the
// session.
func (sc *script) markChanged() {
	sc.changed = true
	sc.session.anyChanged = true
}

// dir is the directory relative includes and exec run from.
func (sc *script) dir() string {
	return filepath.Dir(sc.path)
}

// relativePath resolves p against the script's directory.
func (sc *script) relativePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(sc.dir(), p))
}
