package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/roach88/exodep/internal/fetch"
)

// FakeFetcher serves fixed content by URI and records every request.
//
// URIs missing from the map that are not http(s) are read from disk, as the
// real client does, so scripts may mix remote fixtures and local sources.
//
// Thread-safety: FakeFetcher is safe for concurrent use via internal mutex.
type FakeFetcher struct {
	mu    sync.Mutex
	files map[string]string
	calls []string
}

// NewFakeFetcher creates a fetcher serving files, keyed by full URI.
func NewFakeFetcher(files map[string]string) *FakeFetcher {
	f := &FakeFetcher{files: make(map[string]string, len(files))}
	for uri, content := range files {
		f.files[uri] = content
	}
	return f
}

// Set adds or replaces the content served for uri.
func (f *FakeFetcher) Set(uri, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[uri] = content
}

// Calls returns the requested URIs in order.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Fetch implements fetch.Fetcher. Text mode normalizes line endings like
// the real client.
func (f *FakeFetcher) Fetch(_ context.Context, uri string, mode fetch.Mode) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uri)
	content, ok := f.files[uri]
	f.mu.Unlock()

	var data []byte
	switch {
	case ok:
		data = []byte(content)
	case fetch.IsRemote(uri):
		return nil, fmt.Errorf("GET %s: not found", uri)
	default:
		local, err := os.ReadFile(uri)
		if err != nil {
			return nil, err
		}
		data = local
	}

	if mode == fetch.ModeText {
		return fetch.NormalizeLineEndings(data), nil
	}
	return data, nil
}
