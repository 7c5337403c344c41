package fingerprint

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	utls "github.com/refraction-networking/utls"
)

func TestTransport_Profiles(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(Options{Profile: p, InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}

			client := &http.Client{Transport: rt}
			resp, err := client.Get(ts.URL)
			if err != nil {
				t.Fatalf("request failed for profile %s: %v", p, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200 OK, got %d for profile %s", resp.StatusCode, p)
			}
		})
	}
}

func TestTransport_UnknownProfile(t *testing.T) {
	_, err := Transport(Options{Profile: Profile("unknown_browser")})
	if err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
	if err.Error() != `fingerprint: unknown profile "unknown_browser"` {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseProfile(t *testing.T) {
	tests := map[string]Profile{
		"":         ProfileChrome,
		"Chrome":   ProfileChrome,
		" firefox": ProfileFirefox,
		"safari":   ProfileSafari,
		"go":       ProfileGo,
		"random":   ProfileRandom,
	}
	for in, want := range tests {
		got, err := ParseProfile(in)
		if err != nil {
			t.Errorf("ParseProfile(%q) unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseProfile(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseProfile("netscape"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestPinHTTP1(t *testing.T) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pinHTTP1(&spec)

	found := false
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			found = true
			if len(alpn.AlpnProtocols) != 1 || alpn.AlpnProtocols[0] != "http/1.1" {
				t.Errorf("expected ALPN [http/1.1], got %v", alpn.AlpnProtocols)
			}
		}
	}
	if !found {
		t.Error("expected chrome hello to carry an ALPN extension")
	}
}

// connectProxy is an HTTP CONNECT proxy that records the first TLS record the
// client sends through each tunnel.
type connectProxy struct {
	mu        sync.Mutex
	hellos    [][]byte
	proxyAuth string
}

func (p *connectProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodConnect {
		http.Error(w, "CONNECT only", http.StatusMethodNotAllowed)
		return
	}
	upstream, err := net.Dial("tcp", r.Host)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer upstream.Close()

	client, brw, err := w.(http.Hijacker).Hijack()
	if err != nil {
		return
	}
	defer client.Close()

	p.mu.Lock()
	p.proxyAuth = r.Header.Get("Proxy-Authorization")
	p.mu.Unlock()

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		return
	}

	record, err := readRecord(brw.Reader)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.hellos = append(p.hellos, record)
	p.mu.Unlock()
	if _, err := upstream.Write(record); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(upstream, brw.Reader)
		close(done)
	}()
	_, _ = io.Copy(client, upstream)
	<-done
}

func readRecord(r *bufio.Reader) ([]byte, error) {
	head := make([]byte, 5)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	body := make([]byte, binary.BigEndian.Uint16(head[3:5]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return append(head, body...), nil
}

// hasGREASE reports whether a ClientHello record offers a GREASE cipher
// suite. Browsers do; crypto/tls never does.
func hasGREASE(record []byte) (bool, error) {
	// record header(5) + handshake header(4) + version(2) + random(32)
	const sidAt = 5 + 4 + 2 + 32
	if len(record) < sidAt+1 || record[0] != 0x16 || record[5] != 0x01 {
		return false, errors.New("not a ClientHello")
	}
	at := sidAt + 1 + int(record[sidAt])
	if len(record) < at+2 {
		return false, errors.New("truncated ClientHello")
	}
	n := int(binary.BigEndian.Uint16(record[at : at+2]))
	suites := record[at+2:]
	if len(suites) < n {
		return false, errors.New("truncated cipher suites")
	}
	for i := 0; i+1 < n; i += 2 {
		if suites[i] == suites[i+1] && suites[i]&0x0f == 0x0a {
			return true, nil
		}
	}
	return false, nil
}

func TestTransport_ProxiedHandshakeKeepsFingerprint(t *testing.T) {
	target := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	for _, tc := range []struct {
		profile Profile
		grease  bool
	}{
		{ProfileChrome, true},
		{ProfileGo, false},
	} {
		t.Run(string(tc.profile), func(t *testing.T) {
			cp := &connectProxy{}
			proxySrv := httptest.NewServer(cp)
			defer proxySrv.Close()

			proxyURL, _ := url.Parse(proxySrv.URL)
			proxyURL.User = url.UserPassword("user", "pass")

			rt, err := Transport(Options{Profile: tc.profile, Proxy: http.ProxyURL(proxyURL), InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp, err := (&http.Client{Transport: rt}).Get(target.URL)
			if err != nil {
				t.Fatalf("request through proxy failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			cp.mu.Lock()
			defer cp.mu.Unlock()
			if len(cp.hellos) != 1 {
				t.Fatalf("expected one tunnelled handshake, got %d", len(cp.hellos))
			}
			grease, err := hasGREASE(cp.hellos[0])
			if err != nil {
				t.Fatalf("parse ClientHello: %v", err)
			}
			if grease != tc.grease {
				t.Errorf("GREASE in ClientHello = %v, want %v", grease, tc.grease)
			}
			if cp.proxyAuth != "Basic dXNlcjpwYXNz" {
				t.Errorf("unexpected Proxy-Authorization %q", cp.proxyAuth)
			}
		})
	}
}

func TestTransport_ProxyRefusesConnect(t *testing.T) {
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer proxySrv.Close()
	proxyURL, _ := url.Parse(proxySrv.URL)

	rt, err := Transport(Options{Profile: ProfileFirefox, Proxy: http.ProxyURL(proxyURL), InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := (&http.Client{Transport: rt}).Get("https://example.invalid/"); err == nil {
		t.Fatal("expected an error when the proxy refuses CONNECT")
	}
}
