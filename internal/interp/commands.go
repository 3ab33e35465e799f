package interp

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"regexp"
	"strings"

	"github.com/roach88/exodep/internal/fetch"
	"github.com/roach88/exodep/internal/filesync"
)

// command pairs a line grammar with its handler. m holds the submatches of
// pattern against the line.
type command struct {
	name    string
	pattern *regexp.Regexp
	run     func(ctx context.Context, sc *script, m []string)
}

// newCommandTable returns the commands in dispatch order. The order is
// significant: the first matching grammar owns the line.
func newCommandTable() []command {
	return []command{
		{"include", regexp.MustCompile(`^include\s+(.+)`), cmdInclude},
		{"hosting", regexp.MustCompile(`^hosting\s+(.+)`), cmdHosting},
		{"uritemplate", regexp.MustCompile(`^uritemplate\s+(.+)`), cmdURITemplate},
		{"versions", regexp.MustCompile(`^versions(?:\s+(.*))?$`), cmdVersions},
		{"variable", regexp.MustCompile(`^\$(\w+)(?:\s+(.*))?$`), cmdVariable},
		{"default", regexp.MustCompile(`^default\s+\$(\w+)\s+(.*)`), cmdDefault},
		{"copy", regexp.MustCompile(`^copy\s+(\S+)(?:\s+(\S+))?`), cmdCopy},
		{"bcopy", regexp.MustCompile(`^bcopy\s+(\S+)(?:\s+(\S+))?`), cmdBcopy},
		{"cp/mv", regexp.MustCompile(`^(cp|mv)\s+(\S+)\s+(\S+)`), cmdTwoPathOp},
		{"mkdir/rmdir/rm", regexp.MustCompile(`^(mkdir|rmdir|rm)\s+(\S+)`), cmdOnePathOp},
		{"exec", regexp.MustCompile(`^exec\s+(.+)`), cmdExec},
		{"subst", regexp.MustCompile(`^subst\s+(\S+)(?:\s+(\S+))?`), cmdSubst},
		{"on", regexp.MustCompile(`^on\s+\$(\w+)\s+(.+)`), cmdOn},
		{"onchanged", regexp.MustCompile(`^onchanged\s+(.+)`), cmdOnChanged},
		{"onanychanged", regexp.MustCompile(`^onanychanged\s+(.+)`), cmdOnAnyChanged},
		{"platform", regexp.MustCompile(`^(windows|linux|osx)\s+(.+)`), cmdPlatform},
	}
}

// platformNames maps script keywords to GOOS values.
var platformNames = map[string]string{
	"windows": "windows",
	"linux":   "linux",
	"osx":     "darwin",
}

func cmdInclude(ctx context.Context, sc *script, m []string) {
	name := sc.relativePath(m[1])
	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		sc.fail(KindMissingInclude, "'include' file not found: %s", name)
		return
	}
	// The child reports its own failures; an open error is already reported.
	_ = sc.session.runFile(ctx, name, maps.Clone(sc.vars))
}

func cmdHosting(_ context.Context, sc *script, m []string) {
	tpl, ok := sc.session.hosting[m[1]]
	if !ok {
		sc.fail(KindUnknownHostingProvider, "unrecognised hosting server provider: %s", m[1])
		return
	}
	sc.uriTemplate = tpl
}

func cmdURITemplate(_ context.Context, sc *script, m []string) {
	sc.uriTemplate = m[1]
}

func cmdVersions(ctx context.Context, sc *script, m []string) {
	file := m[1]
	if file == "" {
		file = DefaultVersionsFile
	}
	uri, err := sc.versionsURI(file)
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to evaluate versions source %s", file)
		return
	}
	content, err := sc.session.fetcher.Fetch(ctx, uri, fetch.ModeText)
	if err != nil {
		sc.report(wrapError(KindFetchFailure, err, "unable to retrieve %s", uri))
		return
	}
	sc.parseVersions(string(content))
	sc.session.logger.Debug("versions loaded", "script", sc.path, "uri", uri, "entries", len(sc.versions))
}

func cmdVariable(_ context.Context, sc *script, m []string) {
	sc.vars[m[1]] = m[2]
}

func cmdDefault(_ context.Context, sc *script, m []string) {
	if _, ok := sc.vars[m[1]]; !ok {
		sc.vars[m[1]] = m[2]
	}
}

func cmdCopy(ctx context.Context, sc *script, m []string) {
	sc.retrieve(ctx, "copy", m[1], m[2], fetch.ModeText)
}

func cmdBcopy(ctx context.Context, sc *script, m []string) {
	sc.retrieve(ctx, "bcopy", m[1], m[2], fetch.ModeBinary)
}

// retrieve fetches src and syncs it to dst. An empty dst derives the
// destination from src.
func (sc *script) retrieve(ctx context.Context, verb, src, dst string, mode fetch.Mode) {
	if dst == "" {
		if fetch.IsRemote(src) {
			sc.fail(KindDestinationEvaluation,
				"explicit uri not supported with commands of the form '%s src_and_dst'", verb)
			return
		}
		dst = sc.defaultDestination(src)
	}

	from, err := sc.sourceURI(src)
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to evaluate source of %s", src)
		return
	}
	to, err := sc.destination(src, dst)
	if err != nil {
		sc.reportErr(KindDestinationEvaluation, err, "unable to evaluate destination of %s", dst)
		return
	}
	if to == "" {
		sc.fail(KindDestinationEvaluation, "unable to evaluate destination of %s", dst)
		return
	}

	sc.session.logger.Debug("fetch", "script", sc.path, "line", sc.line, "uri", from, "mode", mode.String())
	content, err := sc.session.fetcher.Fetch(ctx, from, mode)
	if err != nil {
		sc.report(wrapError(KindFetchFailure, err, "unable to retrieve %s", from))
		return
	}
	sc.syncContent(content, to, from)
}

// syncContent hands content to the sync engine and reports the decision.
func (sc *script) syncContent(content []byte, dst, source string) {
	outcome, err := sc.session.syncer.SyncBytes(content, dst)
	if err != nil {
		sc.report(wrapError(KindLocalFileOperation, err, "unable to update %s", dst))
		return
	}
	if outcome.Changed() {
		sc.markChanged()
	}
	sc.session.logger.Debug("sync", "script", sc.path, "line", sc.line, "path", dst, "outcome", outcome.String())
	sc.session.emit(Event{
		Kind:   eventKindFor(outcome),
		Script: sc.path,
		Line:   sc.line,
		Path:   dst,
		Source: source,
		Digest: filesync.Digest(content),
	})
}

func cmdTwoPathOp(_ context.Context, sc *script, m []string) {
	op := m[1]
	src, err := sc.expand(m[2])
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to '%s' %s", op, m[2])
		return
	}
	dst, err := sc.expand(m[3])
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to '%s' to %s", op, m[3])
		return
	}

	switch op {
	case "cp":
		err = filesync.Copy(src, dst)
	case "mv":
		err = filesync.Move(src, dst)
	}
	if err != nil {
		sc.report(wrapError(KindLocalFileOperation, err, "unable to '%s' file '%s' to '%s'", op, src, dst))
	}
}

func cmdOnePathOp(_ context.Context, sc *script, m []string) {
	op := m[1]
	target, err := sc.expand(m[2])
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to '%s' %s", op, m[2])
		return
	}

	switch op {
	case "mkdir":
		err = os.MkdirAll(target, 0755)
	case "rmdir":
		err = removeTree(target)
	case "rm":
		err = removeFile(target)
	}
	if err != nil {
		sc.report(wrapError(KindLocalFileOperation, err, "unable to '%s' on '%s'", op, target))
	}
}

// removeTree deletes a directory and its contents. Unlike os.RemoveAll a
// missing or non-directory target is an error.
func removeTree(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return os.RemoveAll(dir)
}

// removeFile deletes a single non-directory file.
func removeFile(name string) error {
	info, err := os.Lstat(name)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", name)
	}
	return os.Remove(name)
}

func cmdExec(ctx context.Context, sc *script, m []string) {
	line, err := sc.expand(m[1])
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to 'exec' %s", m[1])
		return
	}
	sc.session.logger.Debug("exec", "script", sc.path, "line", sc.line, "command", line, "dir", sc.dir())
	if err := sc.session.runner.Run(ctx, sc.dir(), line); err != nil {
		sc.report(wrapError(KindCommandFailure, err, "'exec' of '%s' failed", line))
	}
}

func cmdSubst(_ context.Context, sc *script, m []string) {
	src, err := sc.expand(m[1])
	if err != nil {
		sc.reportErr(KindUnresolvedVariable, err, "unable to evaluate 'subst' source %s", m[1])
		return
	}
	dst := src
	if m[2] != "" {
		if dst, err = sc.expand(m[2]); err != nil {
			sc.reportErr(KindDestinationEvaluation, err, "unable to evaluate 'subst' destination %s", m[2])
			return
		}
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sc.fail(KindLocalFileOperation, "unable to open file for 'subst' command: %s", src)
		} else {
			sc.report(wrapError(KindLocalFileOperation, err, "unable to read file for 'subst' command: %s", src))
		}
		return
	}

	lines := strings.SplitAfter(string(fetch.UniversalNewlines(raw)), "\n")
	var out strings.Builder
	for _, line := range lines {
		expanded, err := sc.substExpand(line)
		if err != nil {
			sc.reportErr(KindUnresolvedVariable, err, "unrecognised variable in 'subst' command")
			return
		}
		out.WriteString(expanded)
	}
	sc.syncContent([]byte(out.String()), dst, src)
}

func cmdOn(ctx context.Context, sc *script, m []string) {
	if value, ok := sc.vars[m[1]]; ok && value != "" {
		sc.processLine(ctx, m[2])
	}
}

func cmdOnChanged(ctx context.Context, sc *script, m []string) {
	if sc.changed {
		sc.processLine(ctx, m[1])
	}
}

func cmdOnAnyChanged(ctx context.Context, sc *script, m []string) {
	if sc.session.anyChanged {
		sc.processLine(ctx, m[1])
	}
}

func cmdPlatform(ctx context.Context, sc *script, m []string) {
	if platformNames[m[1]] == sc.session.platform {
		sc.processLine(ctx, m[2])
	}
}
