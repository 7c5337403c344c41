// Package relay is the HTTP backend the browser form talks to. It keeps
// registrar credentials off the client and probes social profiles from a
// server egress address.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/brandcheck/internal/metrics"
	"github.com/FranksOps/brandcheck/internal/search"
	"github.com/FranksOps/brandcheck/internal/storage"
	"github.com/FranksOps/brandcheck/pkg/httpclient"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultIPLookupURL echoes the caller's public address as {"ip": "..."}.
const DefaultIPLookupURL = "https://api.ipify.org?format=json"

// Options wires the relay to its collaborators. Only Domains is required;
// endpoints whose collaborator is nil answer 503.
type Options struct {
	Domains     search.DomainChecker
	Social      search.UsernameChecker
	Searcher    *search.Searcher
	Credentials storage.CredentialStore
	History     storage.Backend

	IPLookupURL    string
	AllowedOrigins []string
	// Client performs the outbound IP lookup.
	Client *httpclient.Client
	Logger *slog.Logger
}

// Server serves the relay endpoints.
type Server struct {
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// New builds the relay router.
func New(opts Options) (*Server, error) {
	if opts.Domains == nil {
		return nil, fmt.Errorf("relay: domain checker is nil")
	}
	if opts.IPLookupURL == "" {
		opts.IPLookupURL = DefaultIPLookupURL
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("relay: create client: %w", err)
		}
		opts.Client = c
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{opts: opts, logger: opts.Logger.With("component", "relay")}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	// bare OPTIONS without a preflight header still gets an empty 200
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/check-domains", s.handleCheckDomains)
	r.Get("/ip", s.handleIP)
	r.Post("/check-username", s.handleCheckUsername)
	r.Post("/search", s.handleSearch)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Get("/history", s.handleHistory)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// Handler returns the relay as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay: shutdown: %w", err)
	}
	return nil
}
