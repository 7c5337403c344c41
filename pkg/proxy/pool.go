package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when reporting on a proxy the pool never handed out.
var ErrUnknownProxy = errors.New("proxy: not in pool")

// endpoint is one egress proxy and its health.
type endpoint struct {
	url           *url.URL
	failures      int
	successes     int
	disabledUntil time.Time
}

// Stats is a point-in-time view of a proxy's health.
type Stats struct {
	URL       string
	Failures  int
	Successes int
	Disabled  bool
}

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures before disabling a proxy temporarily.
	MaxFailures int
	// Cooldown is how long a proxy remains disabled after hitting MaxFailures.
	Cooldown time.Duration
}

// Pool rotates outbound probes across a set of proxies, benching the ones
// that keep failing. It is safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	byURL       map[string]*endpoint
	cursor      int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewPool creates an empty pool. Zero config values get defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		byURL:       make(map[string]*endpoint),
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
	}
}

// LoadFile reads proxies from a file, one URL per line.
// Blank lines and lines starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("proxy: read %s: %w", path, err)
	}

	return p.Add(urls...)
}

// Add parses raw proxy URLs, defaulting to http:// when the scheme is missing.
// Duplicates are ignored.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", raw, err)
		}
		key := u.String()
		if _, dup := p.byURL[key]; dup {
			continue
		}
		ep := &endpoint{url: u}
		p.endpoints = append(p.endpoints, ep)
		p.byURL[key] = ep
	}
	return nil
}

// Len returns the number of proxies in the pool, healthy or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next healthy proxy, or nil when the pool is empty or every
// proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.endpoints {
		ep := p.endpoints[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.endpoints)

		if !ep.disabledUntil.IsZero() && now.After(ep.disabledUntil) {
			ep.disabledUntil = time.Time{}
			ep.failures = 0
		}
		if ep.disabledUntil.IsZero() {
			return ep.url
		}
	}
	return nil
}

// MarkSuccess records a successful request through proxyURL.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep, err := p.lookup(proxyURL)
	if err != nil {
		return err
	}
	ep.successes++
	if ep.failures > 0 {
		ep.failures--
	}
	return nil
}

// MarkFailure records a failure through proxyURL, benching it for the
// cooldown once MaxFailures is reached.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep, err := p.lookup(proxyURL)
	if err != nil {
		return err
	}
	ep.failures++
	if ep.failures >= p.maxFailures {
		ep.disabledUntil = p.now().Add(p.cooldown)
	}
	return nil
}

// Stats returns the health of every proxy in insertion order.
func (p *Pool) Stats() []Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]Stats, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		out = append(out, Stats{
			URL:       ep.url.String(),
			Failures:  ep.failures,
			Successes: ep.successes,
			Disabled:  !ep.disabledUntil.IsZero() && now.Before(ep.disabledUntil),
		})
	}
	return out
}

// lookup must be called with the lock held.
func (p *Pool) lookup(u *url.URL) (*endpoint, error) {
	if u == nil {
		return nil, errors.New("proxy: url cannot be nil")
	}
	ep, ok := p.byURL[u.String()]
	if !ok {
		return nil, ErrUnknownProxy
	}
	return ep, nil
}
