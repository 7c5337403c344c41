// Package registrar looks up domain availability for a brand across a set of
// TLDs. Every failure is reported per domain, never as an error.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/metrics"
	"github.com/FranksOps/brandcheck/pkg/httpclient"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the ResellerClub availability endpoint.
	DefaultBaseURL   = "https://httpapi.com/api/domains/available.json"
	DefaultUserAgent = "BrandCheck-Domain-Checker/1.0"
	DefaultTimeout   = 15 * time.Second

	// Per-domain annotations.
	ErrMsgNotConfigured = "API credentials not configured"
	ErrMsgNoData        = "No data returned for domain"
	ErrMsgAPIError      = "API error"
	ErrMsgInvalidDomain = "Invalid domain name"
)

// Config configures a Service.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond throttles registrar calls; 0 disables throttling.
	RequestsPerSecond float64
	Burst             int
	Transport         http.RoundTripper
	// Generator answers for mock lookups; nil seeds one from the clock.
	Generator Generator
}

// Service is the domain availability pipeline.
type Service struct {
	baseURL string
	client  *httpclient.Client
	limiter *rate.Limiter
	gen     Generator
	logger  *slog.Logger
}

// New creates a Service. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("registrar: base url: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Generator == nil {
		cfg.Generator = NewRandomGenerator(uint64(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("registrar: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Service{
		baseURL: cfg.BaseURL,
		client:  client,
		limiter: limiter,
		gen:     cfg.Generator,
		logger:  logger.With("component", "registrar"),
	}, nil
}

// CheckDomains returns one result per tld, in order. The only error is
// ErrInvalidBrand for an empty name, returned before any network call. A name
// that cannot form a domain label yields unavailable results annotated with
// ErrMsgInvalidDomain.
func (s *Service) CheckDomains(ctx context.Context, brandName string, tlds []string, creds brand.Credentials) ([]brand.DomainResult, error) {
	name, labelErr := NormalizeBrand(brandName)
	if errors.Is(labelErr, ErrInvalidBrand) {
		return nil, labelErr
	}

	domains := make([]string, len(tlds))
	normalized := make([]string, len(tlds))
	for i, tld := range tlds {
		normalized[i] = NormalizeTLD(tld)
		domains[i] = name + "." + normalized[i]
	}
	if len(domains) == 0 {
		return []brand.DomainResult{}, nil
	}

	if labelErr != nil {
		s.logger.Debug("brand cannot form a domain label", "brand", brandName, "error", labelErr)
		return failAll(domains, ErrMsgInvalidDomain), nil
	}

	if !creds.Configured() {
		metrics.RecordRegistrar(metrics.OutcomeMock, 0)
		s.logger.Debug("credentials not configured, using mock availability", "brand", name, "tlds", len(domains))
		return s.mock(domains), nil
	}

	start := time.Now()
	results, outcome := s.lookup(ctx, name, normalized, domains, creds)
	metrics.RecordRegistrar(outcome, time.Since(start))
	return results, nil
}

func (s *Service) mock(domains []string) []brand.DomainResult {
	results := make([]brand.DomainResult, len(domains))
	for i, d := range domains {
		results[i] = brand.DomainResult{
			Domain:    d,
			Available: s.gen.Available(d),
			Error:     ErrMsgNotConfigured,
		}
	}
	return results
}

func (s *Service) lookup(ctx context.Context, name string, tlds, domains []string, creds brand.Credentials) ([]brand.DomainResult, string) {
	if err := s.limiter.Wait(ctx); err != nil {
		return failAll(domains, fmt.Sprintf("registrar request aborted: %v", err)), metrics.OutcomeNetworkError
	}

	resp, err := s.client.Get(ctx, s.queryURL(name, tlds, creds), http.Header{"Accept": {"application/json"}})
	if err != nil {
		msg := redact(err)
		s.logger.Warn("registrar request failed", "brand", name, "error", msg)
		return failAll(domains, msg), metrics.OutcomeNetworkError
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		msg := fmt.Sprintf("registrar request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		s.logger.Warn("registrar returned non-success status", "brand", name, "status", resp.StatusCode)
		return failAll(domains, msg), metrics.OutcomeHTTPError
	}

	entries, err := decodeAvailability(resp.Body)
	if err != nil {
		s.logger.Warn("registrar response undecodable", "brand", name, "error", err)
		return failAll(domains, err.Error()), metrics.OutcomeDecodeError
	}

	return classify(domains, entries), metrics.OutcomeOK
}

func (s *Service) queryURL(name string, tlds []string, creds brand.Credentials) string {
	params := url.Values{}
	params.Set("auth-userid", creds.UserID)
	params.Set("api-key", creds.APIKey)
	params.Set("domain-name", name)
	for _, tld := range tlds {
		params.Add("tlds", tld)
	}
	return s.baseURL + "?" + params.Encode()
}

func failAll(domains []string, msg string) []brand.DomainResult {
	results := make([]brand.DomainResult, len(domains))
	for i, d := range domains {
		results[i] = brand.DomainResult{Domain: d, Available: false, Error: msg}
	}
	return results
}

// redact drops the request URL from transport errors, since the query string
// carries the API key.
func redact(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Sprintf("registrar request failed: %v", uerr.Err)
	}
	return fmt.Sprintf("registrar request failed: %v", err)
}
