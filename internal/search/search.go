// Package search runs the domain and social pipelines side by side and
// merges their results into one report.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultTLDs are checked when a request names none.
var DefaultTLDs = []string{"com", "in"}

// ErrEmptyBrand is returned when the brand name is blank after trimming.
var ErrEmptyBrand = errors.New("search: brand name is required")

// DomainChecker is the domain availability pipeline.
type DomainChecker interface {
	CheckDomains(ctx context.Context, brandName string, tlds []string, creds brand.Credentials) ([]brand.DomainResult, error)
}

// UsernameChecker is the social handle pipeline.
type UsernameChecker interface {
	CheckUsername(ctx context.Context, username string) ([]brand.SocialResult, error)
}

// Request is a single search.
type Request struct {
	BrandName   string
	TLDs        []string
	Credentials brand.Credentials
}

// Options configures a Searcher. Store and Credentials are optional.
type Options struct {
	Domains     DomainChecker
	Social      UsernameChecker
	Store       storage.Backend
	Credentials storage.CredentialStore
	DefaultTLDs []string
	Logger      *slog.Logger
}

// Searcher merges both pipelines into a brand.Report.
type Searcher struct {
	domains     DomainChecker
	social      UsernameChecker
	store       storage.Backend
	credentials storage.CredentialStore
	defaultTLDs []string
	logger      *slog.Logger
	now         func() time.Time
}

// New builds a Searcher. Both pipelines are required.
func New(opts Options) (*Searcher, error) {
	if opts.Domains == nil {
		return nil, fmt.Errorf("search: domain checker is nil")
	}
	if opts.Social == nil {
		return nil, fmt.Errorf("search: username checker is nil")
	}
	if len(opts.DefaultTLDs) == 0 {
		opts.DefaultTLDs = DefaultTLDs
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Searcher{
		domains:     opts.Domains,
		social:      opts.Social,
		store:       opts.Store,
		credentials: opts.Credentials,
		defaultTLDs: opts.DefaultTLDs,
		logger:      opts.Logger.With("component", "search"),
		now:         time.Now,
	}, nil
}

// Search validates the request, runs both pipelines concurrently and returns
// the merged report. A failure to persist the report is logged only.
func (s *Searcher) Search(ctx context.Context, req Request) (*brand.Report, error) {
	name := strings.TrimSpace(req.BrandName)
	if name == "" {
		return nil, ErrEmptyBrand
	}

	tlds := req.TLDs
	if len(tlds) == 0 {
		tlds = s.defaultTLDs
	}

	creds := req.Credentials
	if !creds.Configured() && s.credentials != nil {
		stored, err := s.credentials.LoadCredentials(ctx)
		if err != nil {
			s.logger.Warn("could not load stored credentials", "error", err)
		} else {
			creds = stored
		}
	}

	start := s.now()
	report := &brand.Report{
		ID:        uuid.NewString(),
		Brand:     name,
		CreatedAt: start.UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := s.domains.CheckDomains(gctx, name, tlds, creds)
		if err != nil {
			return fmt.Errorf("domains: %w", err)
		}
		report.Domains = results
		return nil
	})
	g.Go(func() error {
		results, err := s.social.CheckUsername(gctx, name)
		if err != nil {
			return fmt.Errorf("social: %w", err)
		}
		report.Social = results
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search %q: %w", name, err)
	}

	report.Duration = s.now().Sub(start)

	if s.store != nil {
		if err := s.store.Save(ctx, report); err != nil {
			s.logger.Error("failed to save report", "id", report.ID, "brand", name, "error", err)
		}
	}

	s.logger.Info("search complete",
		"id", report.ID,
		"brand", name,
		"domains", len(report.Domains),
		"social", len(report.Social),
		"duration", report.Duration,
	)
	return report, nil
}
