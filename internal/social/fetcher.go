package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/brandcheck/internal/fingerprint"
	"github.com/FranksOps/brandcheck/internal/metrics"
	"github.com/FranksOps/brandcheck/pkg/httpclient"
	"github.com/FranksOps/brandcheck/pkg/proxy"
	"github.com/FranksOps/brandcheck/pkg/ratelimit"
	"github.com/FranksOps/brandcheck/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchConfig configures how profile pages are fetched.
type FetchConfig struct {
	Timeout   time.Duration
	BodyLimit int
	UAPool    *useragent.Pool
	// RandomUA picks User-Agents at random instead of round-robin.
	RandomUA bool
	// UseCookieJar shares one cookie jar across fetches.
	UseCookieJar bool

	Fingerprint fingerprint.Profile
	ProxyPool   *proxy.Pool
	Limiters    *ratelimit.Group
	// Transport replaces the fingerprinted transport when set.
	Transport http.RoundTripper
}

// Fetcher performs single profile page fetches. Connections are pooled for
// the lifetime of the Fetcher.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// Response is what a single fetch observed. StatusCode is 0 and Err is set
// when no HTTP response was received.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
	Duration   time.Duration
	Err        error
}

// NewFetcher builds a Fetcher, filling in defaults for zero config values.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}

	transport := cfg.Transport
	if transport == nil {
		// the proxy is chosen per request and travels in the request context
		proxyFunc := func(req *http.Request) (*url.URL, error) {
			if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
				return u, nil
			}
			return http.ProxyFromEnvironment(req)
		}
		var err error
		transport, err = fingerprint.Transport(fingerprint.Options{Profile: cfg.Fingerprint, Proxy: proxyFunc})
		if err != nil {
			return nil, fmt.Errorf("social: setup transport: %w", err)
		}
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: httpclient.DefaultMaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("social: create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// Fetch GETs target with browser headers, following redirects, and keeps the
// first BodyLimit characters of the body. key selects the rate limiter.
func (f *Fetcher) Fetch(ctx context.Context, key, target string) Response {
	res := Response{URL: target}

	if err := f.config.Limiters.Wait(ctx, key); err != nil {
		res.Err = fmt.Errorf("rate limiter: %w", err)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
		if activeProxy != nil {
			ctx = context.WithValue(ctx, proxyKey, activeProxy)
		}
	}

	start := time.Now()
	resp, err := f.client.Get(ctx, target, useragent.BrowserHeaders(f.userAgent()))
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
			metrics.RecordProxyHealth(f.config.ProxyPool.Stats())
		}
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
		metrics.RecordProxyHealth(f.config.ProxyPool.Stats())
	}

	body, err := httpclient.ReadHead(resp.Body, f.config.BodyLimit)
	res.Duration = time.Since(start)
	if err != nil {
		// a body that dies mid-read counts as no response at all
		res.Err = fmt.Errorf("read body: %w", err)
		return res
	}

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header
	res.Body = body
	return res
}

func (f *Fetcher) userAgent() string {
	if f.config.RandomUA {
		return f.config.UAPool.Random()
	}
	return f.config.UAPool.Next()
}
