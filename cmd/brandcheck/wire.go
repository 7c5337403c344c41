package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/FranksOps/brandcheck/internal/config"
	"github.com/FranksOps/brandcheck/internal/fingerprint"
	"github.com/FranksOps/brandcheck/internal/metrics"
	"github.com/FranksOps/brandcheck/internal/registrar"
	"github.com/FranksOps/brandcheck/internal/search"
	"github.com/FranksOps/brandcheck/internal/social"
	"github.com/FranksOps/brandcheck/internal/storage"
	"github.com/FranksOps/brandcheck/internal/storage/credfile"
	"github.com/FranksOps/brandcheck/internal/storage/csvbackend"
	"github.com/FranksOps/brandcheck/internal/storage/jsonbackend"
	"github.com/FranksOps/brandcheck/internal/storage/postgres"
	"github.com/FranksOps/brandcheck/internal/storage/sqlite"
	"github.com/FranksOps/brandcheck/pkg/proxy"
	"github.com/FranksOps/brandcheck/pkg/ratelimit"
	"github.com/FranksOps/brandcheck/pkg/useragent"
)

func newRegistrar(cfg config.RegistrarConfig, logger *slog.Logger) (*registrar.Service, error) {
	rc := registrar.Config{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RPS,
		Burst:             cfg.Burst,
	}
	if cfg.Seed != 0 {
		rc.Generator = registrar.NewRandomGenerator(cfg.Seed)
	}
	return registrar.New(rc, logger)
}

func newProber(cfg config.SocialConfig, logger *slog.Logger) (*social.Prober, error) {
	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	fc := social.FetchConfig{
		Timeout:      cfg.Timeout,
		BodyLimit:    cfg.BodyLimit,
		UAPool:       useragent.NewPool(nil),
		RandomUA:     cfg.UARotation == config.UARotationRandom,
		UseCookieJar: cfg.Cookies,
		Fingerprint:  profile,
		Limiters:     ratelimit.NewGroup(cfg.RPS, cfg.Jitter),
	}
	if cfg.ProxiesFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(cfg.ProxiesFile); err != nil {
			return nil, err
		}
		logger.Info("loaded proxies", "count", pool.Len(), "file", cfg.ProxiesFile)
		metrics.RecordProxyHealth(pool.Stats())
		fc.ProxyPool = pool
	}

	return social.NewProber(social.Config{Fetch: fc}, logger)
}

// stores bundles whatever persistence the configuration enables. Either
// field may be nil.
type stores struct {
	history     storage.Backend
	credentials storage.CredentialStore
	closers     []io.Closer
}

func (s *stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}

	switch cfg.Storage.Driver {
	case config.DriverNone, "":
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		s.history, s.credentials = db, db
		s.closers = append(s.closers, db)
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		s.history, s.credentials = db, db
		s.closers = append(s.closers, db)
	case config.DriverNDJSON:
		b, err := jsonbackend.New(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		s.history = b
		s.closers = append(s.closers, b)
	case config.DriverCSV:
		b, err := csvbackend.New(cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		s.history = b
		s.closers = append(s.closers, b)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Credentials.File != "" {
		s.credentials = credfile.New(cfg.Credentials.File)
	}
	return s, nil
}

// newSearcher wires both pipelines and the configured stores together.
func newSearcher(cfg config.Config, st *stores, logger *slog.Logger) (*search.Searcher, *registrar.Service, *social.Prober, error) {
	reg, err := newRegistrar(cfg.Registrar, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	prober, err := newProber(cfg.Social, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	searcher, err := search.New(search.Options{
		Domains:     reg,
		Social:      prober,
		Store:       st.history,
		Credentials: credentialChain(cfg.Registrar, st.credentials),
		DefaultTLDs: cfg.Search.TLDs,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return searcher, reg, prober, nil
}
