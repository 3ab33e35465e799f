package interp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/exodep/internal/filesync"
	"github.com/roach88/exodep/internal/testutil"
)

type testEnv struct {
	dir       string
	session   *Session
	events    *Collector
	fetcher   *testutil.FakeFetcher
	runner    *testutil.RecordingRunner
	setupOpts []Option
}

// newTestEnv creates a session working in a fresh temp dir, which also
// becomes the working directory for the test.
func newTestEnv(t *testing.T, files map[string]string, opts ...Option) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	env := &testEnv{
		dir:     dir,
		events:  &Collector{},
		fetcher: testutil.NewFakeFetcher(files),
		runner:  &testutil.RecordingRunner{},
	}
	base := []Option{
		WithFetcher(env.fetcher),
		WithSyncer(filesync.New(t.TempDir())),
		WithReporter(env.events),
		WithCommandRunner(env.runner),
		WithPlatform("linux"),
	}
	env.setupOpts = append(base, opts...)
	env.session = NewSession(env.setupOpts...)
	return env
}

// newSession starts a second run sharing the env's collaborators.
func (e *testEnv) newSession() *Session {
	e.session = NewSession(e.setupOpts...)
	return e.session
}

func (e *testEnv) run(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, e.session.RunScript(context.Background(), "test.exodep", text))
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, name))
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) kinds() []EventKind {
	kinds := make([]EventKind, len(e.events.Events))
	for i, ev := range e.events.Events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (e *testEnv) errorKinds() []ErrorKind {
	var kinds []ErrorKind
	for _, err := range e.events.Errors() {
		kinds = append(kinds, err.Kind)
	}
	return kinds
}

const ghPrefix = "https://raw.githubusercontent.com/me/lib/"

// newBareScript returns a script context for unit tests of expansion.
func newBareScript(vars map[string]string) *script {
	s := NewSession(WithFetcher(testutil.NewFakeFetcher(nil)))
	return s.newScript("unit.exodep", vars)
}
