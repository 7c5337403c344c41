package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedNoALPN,
}

// ParseProfile maps a config string onto a Profile. Empty means chrome.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileChrome, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("fingerprint: unknown profile %q", s)
	}
	return p, nil
}

// Options configures the transport returned by Transport.
type Options struct {
	Profile Profile
	// Proxy selects the egress proxy per request; nil means direct.
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

// Transport returns an http.RoundTripper whose TLS ClientHello mimics the
// requested browser. ALPN is pinned to http/1.1 because the returned
// transport cannot speak h2 over a uTLS connection.
//
// Proxied https requests are tunnelled here rather than by net/http, which
// would run its own handshake inside the CONNECT tunnel and drop the
// fingerprint.
func Transport(opts Options) (http.RoundTripper, error) {
	if opts.Profile == "" {
		opts.Profile = ProfileChrome
	}

	if opts.Profile == ProfileGo {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Proxy != nil {
			transport.Proxy = opts.Proxy
		}
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	helloID, ok := helloIDs[opts.Profile]
	if !ok {
		return nil, fmt.Errorf("fingerprint: unknown profile %q", opts.Profile)
	}

	var spec *utls.ClientHelloSpec
	if opts.Profile != ProfileRandom {
		s, err := utls.UTLSIdToSpec(helloID)
		if err != nil {
			return nil, fmt.Errorf("fingerprint: build %s hello: %w", opts.Profile, err)
		}
		pinHTTP1(&s)
		spec = &s
	}

	return &uTransport{
		proxy:    opts.Proxy,
		helloID:  helloID,
		spec:     spec,
		insecure: opts.InsecureSkipVerify,
		dialer:   &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second},
		byProxy:  make(map[string]*http.Transport),
	}, nil
}

// uTransport keeps one pooled http.Transport per egress proxy, so a
// connection tunnelled through one proxy is never reused for another.
type uTransport struct {
	proxy    func(*http.Request) (*url.URL, error)
	helloID  utls.ClientHelloID
	spec     *utls.ClientHelloSpec
	insecure bool
	dialer   *net.Dialer

	mu      sync.Mutex
	byProxy map[string]*http.Transport
}

func (t *uTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var proxyURL *url.URL
	if t.proxy != nil {
		u, err := t.proxy(req)
		if err != nil {
			return nil, err
		}
		proxyURL = u
	}
	return t.transportFor(proxyURL).RoundTrip(req)
}

// CloseIdleConnections closes idle connections on every proxy transport.
func (t *uTransport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.byProxy {
		tr.CloseIdleConnections()
	}
}

func (t *uTransport) transportFor(proxyURL *url.URL) *http.Transport {
	key := ""
	if proxyURL != nil {
		key = proxyURL.String()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.byProxy[key]; ok {
		return tr
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	if proxyURL != nil {
		// plain http goes through the proxy as usual; https is tunnelled by
		// DialTLSContext
		tr.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "http" {
				return proxyURL, nil
			}
			return nil, nil
		}
	}
	tr.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialVia(ctx, t.dialer, proxyURL, network, addr)
		if err != nil {
			return nil, err
		}
		return t.handshake(ctx, conn, addr)
	}
	t.byProxy[key] = tr
	return tr
}

func (t *uTransport) handshake(ctx context.Context, conn net.Conn, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	cfg := &utls.Config{ServerName: host, InsecureSkipVerify: t.insecure}
	var uConn *utls.UConn
	if t.spec != nil {
		uConn = utls.UClient(conn, cfg, utls.HelloCustom)
		if err := uConn.ApplyPreset(t.spec); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: apply preset: %w", err)
		}
	} else {
		uConn = utls.UClient(conn, cfg, t.helloID)
	}

	if err := uConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("fingerprint: utls handshake failed: %w", err)
	}
	return uConn, nil
}

func pinHTTP1(spec *utls.ClientHelloSpec) {
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
}
