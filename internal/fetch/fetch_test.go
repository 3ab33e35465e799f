package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/crlf.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("one\r\ntwo\r\n"))
	})
	mux.HandleFunc("/blob.bin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x00, '\r', '\n', 0xff})
	})
	mux.HandleFunc("/moved.txt", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/crlf.txt", http.StatusFound)
	})
	mux.HandleFunc("/agent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.UserAgent()))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("http://example.com/a"))
	assert.True(t, IsRemote("https://example.com/a"))
	assert.False(t, IsRemote("ftp://example.com/a"))
	assert.False(t, IsRemote("local/https://a"))
	assert.False(t, IsRemote("a/b.txt"))
}

func TestFetch_TextNormalizesLineEndings(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{})

	got, err := c.Fetch(context.Background(), srv.URL+"/crlf.txt", ModeText)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))
}

func TestFetch_BinaryIsVerbatim(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{})

	got, err := c.Fetch(context.Background(), srv.URL+"/blob.bin", ModeBinary)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, '\r', '\n', 0xff}, got)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{})

	got, err := c.Fetch(context.Background(), srv.URL+"/moved.txt", ModeText)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))
}

func TestFetch_SendsUserAgent(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{UserAgent: "exodep-test"})

	got, err := c.Fetch(context.Background(), srv.URL+"/agent", ModeBinary)
	require.NoError(t, err)
	assert.Equal(t, "exodep-test", string(got))
}

func TestFetch_NotFound(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{})

	_, err := c.Fetch(context.Background(), srv.URL+"/missing.txt", ModeText)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, srv.URL+"/crlf.txt", ModeText)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_LocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb"), 0644))

	c := New(Options{})

	text, err := c.Fetch(context.Background(), path, ModeText)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", string(text))

	raw, err := c.Fetch(context.Background(), path, ModeBinary)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb", string(raw))
}

func TestFetch_LocalPathMissing(t *testing.T) {
	c := New(Options{})
	_, err := c.Fetch(context.Background(), filepath.Join(t.TempDir(), "nope"), ModeText)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_TimeoutUsesContextDeadline(t *testing.T) {
	c := New(Options{Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.LessOrEqual(t, c.timeout(ctx), time.Second)
	assert.Equal(t, time.Minute, c.timeout(context.Background()))
}

func TestClient_NegativeTimeoutDisables(t *testing.T) {
	c := New(Options{Timeout: -1})
	assert.Equal(t, time.Duration(0), c.timeout(context.Background()))
}
