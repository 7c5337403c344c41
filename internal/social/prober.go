// Package social probes public profile URLs to tell whether a handle is
// already registered on each supported platform.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/brandcheck/internal/analyzer"
	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/bypass"
	"github.com/FranksOps/brandcheck/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout   = 8 * time.Second
	DefaultBodyLimit = 4000

	// ErrMsgUnableToCheck annotates results whose verdict is Unknown.
	ErrMsgUnableToCheck = "Unable to check"
)

// ErrEmptyUsername is returned when the username is blank after trimming.
var ErrEmptyUsername = errors.New("social: username is required")

// Config configures a Prober.
type Config struct {
	Fetch FetchConfig
	// ProfileURL overrides where each platform's profile lives.
	ProfileURL func(p brand.Platform, username string) string
}

// Prober is the social handle pipeline.
type Prober struct {
	fetcher    *Fetcher
	profileURL func(brand.Platform, string) string
	detectors  []bypass.Detector
	logger     *slog.Logger
}

// NewProber creates a Prober. A nil logger uses slog.Default().
func NewProber(cfg Config, logger *slog.Logger) (*Prober, error) {
	fetcher, err := NewFetcher(cfg.Fetch)
	if err != nil {
		return nil, err
	}
	if cfg.ProfileURL == nil {
		cfg.ProfileURL = ProfileURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		fetcher:    fetcher,
		profileURL: cfg.ProfileURL,
		detectors:  bypass.DefaultDetectors(),
		logger:     logger.With("component", "social"),
	}, nil
}

// CheckUsername probes every platform concurrently and returns one result per
// platform in brand.Platforms order. It only fails for an empty username.
func (p *Prober) CheckUsername(ctx context.Context, username string) ([]brand.SocialResult, error) {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return nil, ErrEmptyUsername
	}

	results := make([]brand.SocialResult, len(brand.Platforms))
	var g errgroup.Group
	for i, platform := range brand.Platforms {
		g.Go(func() error {
			results[i] = p.probe(ctx, platform, uname)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("social: %w", err)
	}
	return results, nil
}

func (p *Prober) probe(ctx context.Context, platform brand.Platform, uname string) brand.SocialResult {
	resp := p.fetcher.Fetch(ctx, string(platform), p.profileURL(platform, uname))
	page := analyzer.Inspect(resp.Body)

	res := brand.SocialResult{
		Platform:     platform,
		Username:     uname,
		Availability: classifyLower(platform, resp.StatusCode, page.Lower),
		StatusCode:   resp.StatusCode,
	}
	if res.Availability == brand.Unknown {
		res.Error = ErrMsgUnableToCheck
		res.BlockedBy = bypass.Detect(bypass.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
		}, p.detectors)
	}

	metrics.RecordProbe(string(platform), resp.StatusCode, res.Availability.String(), res.BlockedBy, len(resp.Body), resp.Duration)

	attrs := []any{
		"platform", platform,
		"username", uname,
		"status", resp.StatusCode,
		"availability", res.Availability,
		"duration", resp.Duration,
	}
	if page.Title != "" {
		attrs = append(attrs, "title", page.Title)
	}
	if ev := soft404[platform].Evidence(page.Lower); len(ev) > 0 {
		attrs = append(attrs, "soft404", ev)
	}
	if resp.Err != nil {
		attrs = append(attrs, "error", resp.Err)
	}
	if res.BlockedBy != "" {
		attrs = append(attrs, "blocked_by", res.BlockedBy)
	}
	p.logger.Debug("probed profile", attrs...)

	return res
}
