package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/brandcheck/internal/fingerprint"
	"github.com/FranksOps/brandcheck/internal/metrics"
	"github.com/FranksOps/brandcheck/pkg/proxy"
	"github.com/FranksOps/brandcheck/pkg/useragent"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFetcher_BrowserHeadersAndRedirects(t *testing.T) {
	var gotUA, gotLang string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/acme" {
			http.Redirect(w, r, "/acme/", http.StatusMovedPermanently)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte("profile"))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"TestBrowser/1.0"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := fetcher.Fetch(context.Background(), "instagram", ts.URL+"/acme")
	if res.Err != nil {
		t.Fatalf("unexpected fetch error: %v", res.Err)
	}
	if res.StatusCode != http.StatusOK || res.Body != "profile" {
		t.Errorf("unexpected response: %d %q", res.StatusCode, res.Body)
	}
	if gotUA != "TestBrowser/1.0" {
		t.Errorf("expected browser User-Agent, got %q", gotUA)
	}
	if gotLang != useragent.AcceptLanguage {
		t.Errorf("expected Accept-Language %q, got %q", useragent.AcceptLanguage, gotLang)
	}
	if res.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
}

func TestFetcher_BodyLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 10000)))
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	res := fetcher.Fetch(context.Background(), "x", ts.URL)
	if len(res.Body) != DefaultBodyLimit {
		t.Errorf("expected body capped at %d characters, got %d", DefaultBodyLimit, len(res.Body))
	}
}

func TestFetcher_TimeoutIsStatusZero(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     20 * time.Millisecond,
		Fingerprint: fingerprint.ProfileGo,
	})

	res := fetcher.Fetch(context.Background(), "x", ts.URL)
	if res.Err == nil {
		t.Fatal("expected timeout error")
	}
	if res.StatusCode != 0 || res.Body != "" {
		t.Errorf("expected status 0 and empty body, got %d %q", res.StatusCode, res.Body)
	}
}

func TestFetcher_Proxy(t *testing.T) {
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxyServer.Close()

	pool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Second})
	if err := pool.Add(proxyServer.URL); err != nil {
		t.Fatalf("failed to add proxy: %v", err)
	}

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		ProxyPool:   pool,
	})

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	// the proxy answers itself instead of forwarding
	res := fetcher.Fetch(context.Background(), "x", target.URL)
	if res.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418 Teapot from proxy, got %d, err: %v", res.StatusCode, res.Err)
	}
	if s := pool.Stats()[0]; s.Successes != 1 {
		t.Errorf("expected proxy success to be recorded, got %+v", s)
	}
	if got := testutil.ToFloat64(metrics.ProxyHealthy.WithLabelValues(pool.Stats()[0].URL)); got != 1 {
		t.Errorf("expected proxy health gauge 1, got %v", got)
	}
}

func TestFetcher_RandomUserAgent(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("User-Agent")] = true
		mu.Unlock()
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"A/1.0", "B/1.0"}),
		RandomUA:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 64; i++ {
		if res := fetcher.Fetch(context.Background(), "x", ts.URL); res.Err != nil {
			t.Fatalf("unexpected fetch error: %v", res.Err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || !seen["A/1.0"] || !seen["B/1.0"] {
		t.Errorf("expected both User-Agents to be drawn, saw %v", seen)
	}
}

func TestFetcher_CookieJar(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acme":
			http.SetCookie(w, &http.Cookie{Name: "consent", Value: "yes", Path: "/"})
			http.Redirect(w, r, "/acme/", http.StatusFound)
		default:
			if c, err := r.Cookie("consent"); err != nil || c.Value != "yes" {
				http.Redirect(w, r, "/acme", http.StatusFound)
				return
			}
			_, _ = w.Write([]byte("profile"))
		}
	}))
	defer ts.Close()

	for _, tc := range []struct {
		jar        bool
		wantStatus int
	}{
		{jar: true, wantStatus: http.StatusOK},
		{jar: false, wantStatus: 0},
	} {
		fetcher, err := NewFetcher(FetchConfig{
			Timeout:      5 * time.Second,
			Fingerprint:  fingerprint.ProfileGo,
			UseCookieJar: tc.jar,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// without a jar the consent redirect loops until the redirect cap
		res := fetcher.Fetch(context.Background(), "facebook", ts.URL+"/acme")
		if res.StatusCode != tc.wantStatus {
			t.Errorf("jar=%v: expected status %d, got %d (err %v)", tc.jar, tc.wantStatus, res.StatusCode, res.Err)
		}
	}
}
