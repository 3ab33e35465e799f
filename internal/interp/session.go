package interp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/roach88/exodep/internal/fetch"
	"github.com/roach88/exodep/internal/filesync"
)

// DefaultScript is the script run when none is named.
const DefaultScript = "mydeps.exodep"

// DefaultVersionsFile is fetched by a versions command without an argument.
const DefaultVersionsFile = "versions.exodep"

// DefaultMaxExpansions bounds the substitutions performed while expanding
// one string.
const DefaultMaxExpansions = 1000

// DefaultHosting is the provider whose template every script starts with.
const DefaultHosting = "github"

// HostTemplates are the built-in hosting provider URI templates.
var HostTemplates = map[string]string{
	"github":    "https://raw.githubusercontent.com/${owner}/${project}/${strand}/${path}${file}",
	"bitbucket": "https://bitbucket.org/${owner}/${project}/raw/${strand}/${path}${file}",
	"gitlab":    "https://gitlab.com/${owner}/${project}/-/raw/${strand}/${path}${file}",
}

// DefaultVariables seeds every top-level script.
func DefaultVariables() map[string]string {
	return map[string]string{
		"strand": "master",
		"path":   "",
	}
}

// Session is the state shared by every script of one run.
//
// INVARIANTS:
//   - a script path (by absolute path) is processed at most once
//   - anyChanged only ever goes from false to true
type Session struct {
	fetcher       fetch.Fetcher
	syncer        *filesync.Syncer
	reporter      Reporter
	runner        CommandRunner
	logger        *slog.Logger
	platform      string
	hosting       map[string]string
	seeds         map[string]string
	maxExpansions int

	commands []command
	clock    *Clock

	processed  map[string]bool
	anyChanged bool
	summary    Summary
}

// Option configures a Session.
type Option func(*Session)

// WithFetcher sets the source fetcher. Default: fetch.New with default options.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

// WithSyncer sets the sync engine. Default: staging in the system temp dir.
func WithSyncer(sy *filesync.Syncer) Option {
	return func(s *Session) { s.syncer = sy }
}

// WithReporter sets the event reporter. Default: events are discarded.
func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

// WithCommandRunner sets the runner used by exec. Default: the platform shell.
func WithCommandRunner(r CommandRunner) Option {
	return func(s *Session) { s.runner = r }
}

// WithLogger sets the debug logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithPlatform overrides the platform matched by windows, linux and osx.
// Values are GOOS names.
func WithPlatform(goos string) Option {
	return func(s *Session) { s.platform = goos }
}

// WithHosting adds or replaces hosting provider templates.
func WithHosting(templates map[string]string) Option {
	return func(s *Session) {
		for name, tpl := range templates {
			s.hosting[name] = tpl
		}
	}
}

// WithVariables adds or replaces the variables seeded into top-level scripts.
func WithVariables(vars map[string]string) Option {
	return func(s *Session) {
		for name, value := range vars {
			s.seeds[name] = value
		}
	}
}

// WithMaxExpansions bounds substitutions per expansion. Values < 1 are ignored.
func WithMaxExpansions(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxExpansions = n
		}
	}
}

// NewSession creates a Session with an empty processed set.
func NewSession(opts ...Option) *Session {
	s := &Session{
		reporter:      ReporterFunc(func(Event) {}),
		logger:        slog.Default(),
		platform:      runtime.GOOS,
		hosting:       maps.Clone(HostTemplates),
		seeds:         DefaultVariables(),
		maxExpansions: DefaultMaxExpansions,
		clock:         NewClock(),
		processed:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.Options{})
	}
	if s.syncer == nil {
		s.syncer = filesync.New("")
	}
	if s.runner == nil {
		s.runner = NewShellRunner(os.Stdout, os.Stderr)
	}
	s.commands = newCommandTable()
	return s
}

// RunFile runs the script at path. The returned error is non-nil only when
// the script cannot be read or ctx is cancelled; failures inside the script
// are reported as events.
func (s *Session) RunFile(ctx context.Context, path string) error {
	return s.runFile(ctx, path, maps.Clone(s.seeds))
}

// RunScript runs an in-memory script. name identifies it in reports and
// anchors relative includes at its directory.
func (s *Session) RunScript(ctx context.Context, name, text string) error {
	sc := s.newScript(name, maps.Clone(s.seeds))
	return sc.run(ctx, strings.NewReader(text))
}

// AnyChanged reports whether any script of this session created or updated
// a file.
func (s *Session) AnyChanged() bool {
	return s.anyChanged
}

// Summary returns the event counts so far.
func (s *Session) Summary() Summary {
	return s.summary
}

// Processed returns the absolute paths of every script file run, sorted.
func (s *Session) Processed() []string {
	paths := slices.Collect(maps.Keys(s.processed))
	slices.Sort(paths)
	return paths
}

func (s *Session) runFile(ctx context.Context, path string, vars map[string]string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if s.processed[abs] {
		s.logger.Debug("script already processed", "script", path)
		return nil
	}
	s.processed[abs] = true

	sc := s.newScript(path, vars)
	f, err := os.Open(path)
	if err != nil {
		// The path is already in the message; keep only the cause.
		cause := err
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			cause = pathErr.Err
		}
		e := &Error{
			Kind:    KindOpenFailure,
			Message: fmt.Sprintf("unable to open exodep file %s: %v", path, cause),
			Err:     err,
		}
		sc.report(e)
		return e
	}
	defer f.Close()

	s.logger.Debug("running script", "script", path)
	return sc.run(ctx, f)
}

func (s *Session) newScript(path string, vars map[string]string) *script {
	return &script{
		session:     s,
		path:        path,
		vars:        vars,
		uriTemplate: s.hosting[DefaultHosting],
	}
}

func (s *Session) emit(ev Event) {
	ev.Seq = s.clock.Next()
	s.summary.add(ev.Kind)
	s.reporter.Report(ev)
}

// maxLineLength bounds a single script line.
const maxLineLength = 1024 * 1024

func (sc *script) run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sc.line++
		sc.processLine(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		e := wrapError(KindOpenFailure, err, "unable to read exodep file %s", sc.path)
		sc.report(e)
		return e
	}
	return nil
}
