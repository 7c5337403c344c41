package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/brandcheck/pkg/proxy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestHandler_ExposesProbeMetrics(t *testing.T) {
	RecordProbe("instagram", 200, "taken", "", 11, time.Second)
	RecordProbe("twitter", 0, "unknown", "", 0, 2*time.Second)
	RecordRegistrar(OutcomeOK, 300*time.Millisecond)

	ts := httptest.NewServer(Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	for _, want := range []string{
		`brandcheck_social_probes_total{availability="taken",blocked_by="",platform="instagram",status="200"}`,
		`brandcheck_social_probes_total{availability="unknown",blocked_by="",platform="twitter",status="error"}`,
		`brandcheck_social_probe_duration_seconds_bucket`,
		`brandcheck_social_probe_bytes_total{platform="instagram"}`,
		`brandcheck_registrar_requests_total{outcome="ok"}`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected metrics output to contain %s", want)
		}
	}
}

func registrarSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := RegistrarDuration.Write(&m); err != nil {
		t.Fatalf("failed to read histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordRegistrar_MockSkipsDuration(t *testing.T) {
	before := registrarSamples(t)
	beforeMock := testutil.ToFloat64(RegistrarRequestsTotal.WithLabelValues(OutcomeMock))

	RecordRegistrar(OutcomeMock, time.Second)

	if got := testutil.ToFloat64(RegistrarRequestsTotal.WithLabelValues(OutcomeMock)); got != beforeMock+1 {
		t.Errorf("expected mock counter to increase by one, got %v -> %v", beforeMock, got)
	}
	if after := registrarSamples(t); after != before {
		t.Errorf("expected no duration sample for mock lookups, got %d -> %d", before, after)
	}

	RecordRegistrar(OutcomeHTTPError, time.Second)
	if after := registrarSamples(t); after != before+1 {
		t.Errorf("expected one duration sample for a real call, got %d -> %d", before, after)
	}
}

func TestServer_StartStop(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	srv := Start(addr, nil)

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("metrics server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if _, err := http.Get("http://" + addr + "/metrics"); err == nil {
		t.Error("expected requests to fail after stop")
	}
}

func TestRecordProxyHealth(t *testing.T) {
	RecordProxyHealth([]proxy.Stats{
		{URL: "http://a.example:8080", Successes: 3},
		{URL: "http://b.example:8080", Failures: 3, Disabled: true},
	})

	if got := testutil.ToFloat64(ProxyHealthy.WithLabelValues("http://a.example:8080")); got != 1 {
		t.Errorf("expected healthy proxy gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(ProxyHealthy.WithLabelValues("http://b.example:8080")); got != 0 {
		t.Errorf("expected benched proxy gauge 0, got %v", got)
	}
}
