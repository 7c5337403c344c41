package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
	"unicode/utf8"
)

// DefaultMaxRedirects is used when Config.MaxRedirects is zero.
const DefaultMaxRedirects = 10

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects caps redirect hops. Zero means DefaultMaxRedirects,
	// a negative value disables redirect following.
	MaxRedirects int
	UseCookieJar bool
	// UserAgent is sent on requests that don't set one themselves.
	UserAgent string
	// Provide a custom Transport, e.g. for proxies or uTLS fingerprinting
	Transport http.RoundTripper
}

// Client wraps a standard http.Client to provide configurable timeouts,
// redirect policies, a default User-Agent and cookie management.
type Client struct {
	*http.Client
	userAgent string
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects > 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("httpclient: stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, userAgent: cfg.UserAgent}, nil
}

// Do executes an HTTP request. The provided context.Context should control
// the overarching request timeout/cancellation independent of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	reqWithCtx := req.Clone(ctx)
	if c.userAgent != "" && reqWithCtx.Header.Get("User-Agent") == "" {
		reqWithCtx.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.Client.Do(reqWithCtx)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

// Get issues a GET with the given extra headers.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return c.Do(ctx, req)
}

// ReadHead reads at most maxChars characters from r and returns them.
// Characters are Unicode code points, not UTF-16 code units, so a character
// outside the Basic Multilingual Plane counts once. Invalid UTF-8 bytes count
// as one character each. A non-positive maxChars reads everything.
func ReadHead(r io.Reader, maxChars int) (string, error) {
	if maxChars <= 0 {
		b, err := io.ReadAll(r)
		return string(b), err
	}

	b, err := io.ReadAll(io.LimitReader(r, int64(maxChars)*utf8.UTFMax))
	if err != nil {
		return "", err
	}

	n, i := 0, 0
	for i < len(b) && n < maxChars {
		_, size := utf8.DecodeRune(b[i:])
		i += size
		n++
	}
	return string(b[:i]), nil
}
