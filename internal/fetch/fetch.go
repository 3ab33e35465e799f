package fetch

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/valyala/fasthttp"
)

// Mode selects how fetched content is post-processed.
type Mode int

const (
	// ModeText normalizes line endings to "\n".
	ModeText Mode = iota
	// ModeBinary returns content byte for byte.
	ModeBinary
)

func (m Mode) String() string {
	if m == ModeBinary {
		return "binary"
	}
	return "text"
}

// Fetcher returns the full content of a URI or local path.
type Fetcher interface {
	Fetch(ctx context.Context, uri string, mode Mode) ([]byte, error)
}

var remotePattern = regexp.MustCompile(`^https?://`)

// IsRemote reports whether uri names an http or https resource.
func IsRemote(uri string) bool {
	return remotePattern.MatchString(uri)
}

// Default client settings.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "exodep"
)

// Options configures a Client. Zero values select the defaults above,
// except Timeout where a negative value disables the per-request timeout.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
}

// StatusError is returned when a server answers with anything but 200 OK.
type StatusError struct {
	URI  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URI, e.Code)
}

// Client fetches remote sources over HTTP and local sources from disk.
//
// Thread-safety: Client is safe for concurrent use; the interpreter only
// ever calls it from one goroutine.
type Client struct {
	http *fasthttp.Client
	opts Options
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		http: &fasthttp.Client{Name: opts.UserAgent},
		opts: opts,
	}
}

// Fetch returns the content of uri. Remote URIs must answer 200 OK; any
// other uri is treated as a local path.
func (c *Client) Fetch(ctx context.Context, uri string, mode Mode) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if IsRemote(uri) {
		body, err = c.get(ctx, uri)
	} else {
		body, err = os.ReadFile(uri)
	}
	if err != nil {
		return nil, err
	}
	if mode == ModeText {
		return NormalizeLineEndings(body), nil
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.opts.UserAgent)
	if timeout := c.timeout(ctx); timeout > 0 {
		req.SetTimeout(timeout)
	}

	if err := c.http.DoRedirects(req, resp, c.opts.MaxRedirects); err != nil {
		return nil, fmt.Errorf("GET %s: %w", uri, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, &StatusError{URI: uri, Code: code}
	}

	// resp is returned to the pool on exit, so the body must be copied.
	return append([]byte(nil), resp.Body()...), nil
}

// timeout returns the tighter of the configured timeout and the context
// deadline. Zero means no limit.
func (c *Client) timeout(ctx context.Context) time.Duration {
	timeout := c.opts.Timeout
	if timeout < 0 {
		timeout = 0
	}
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); timeout == 0 || d < timeout {
			timeout = d
		}
	}
	return timeout
}
