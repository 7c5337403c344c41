package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/brandcheck/pkg/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SocialProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandcheck_social_probes_total",
			Help: "Social profile probes by platform, final HTTP status and verdict",
		},
		[]string{"platform", "status", "availability", "blocked_by"},
	)

	SocialProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandcheck_social_probe_duration_seconds",
			Help:    "Duration of social profile probes in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"platform"},
	)

	SocialProbeBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandcheck_social_probe_bytes_total",
			Help: "Body bytes inspected across social probes",
		},
		[]string{"platform"},
	)

	RegistrarRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandcheck_registrar_requests_total",
			Help: "Domain availability lookups by outcome",
		},
		[]string{"outcome"},
	)

	RegistrarDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brandcheck_registrar_duration_seconds",
			Help:    "Duration of registrar availability calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandcheck_proxy_failures_total",
			Help: "Total number of proxy failures during probes",
		},
		[]string{"proxy_url"},
	)

	ProxyHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brandcheck_proxy_healthy",
			Help: "1 while a proxy is in rotation, 0 while it cools down",
		},
		[]string{"proxy_url"},
	)
)

// Registrar lookup outcomes.
const (
	OutcomeMock         = "mock"
	OutcomeOK           = "ok"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
	OutcomeDecodeError  = "decode_error"
)

// RecordProbe updates the social probe metrics for one platform.
func RecordProbe(platform string, status int, availability, blockedBy string, bytes int, d time.Duration) {
	statusStr := strconv.Itoa(status)
	if status == 0 {
		statusStr = "error"
	}
	SocialProbesTotal.WithLabelValues(platform, statusStr, availability, blockedBy).Inc()
	SocialProbeDuration.WithLabelValues(platform).Observe(d.Seconds())
	SocialProbeBytes.WithLabelValues(platform).Add(float64(bytes))
}

// RecordRegistrar updates the registrar metrics. Mock lookups skip the
// duration histogram since no call was made.
func RecordRegistrar(outcome string, d time.Duration) {
	RegistrarRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeMock {
		RegistrarDuration.Observe(d.Seconds())
	}
}

// RecordProxyHealth publishes the pool's current view of each proxy.
func RecordProxyHealth(stats []proxy.Stats) {
	for _, s := range stats {
		v := 1.0
		if s.Disabled {
			v = 0
		}
		ProxyHealthy.WithLabelValues(s.URL).Set(v)
	}
}

// Handler exposes the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates a standalone HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on addr and exposes /metrics.
func Start(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	return nil
}
