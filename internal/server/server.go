package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/crawler"
	"github.com/nao1215/webkb/internal/database"
	"github.com/nao1215/webkb/internal/importer"
	"github.com/nao1215/webkb/internal/model"
)

const (
	// AppName is reported by /version.
	AppName = "Web-to-KnowledgeBase"

	// maxJSONBody bounds JSON request bodies.
	maxJSONBody = 1 << 20

	// maxUploadMemory is the multipart memory limit; larger uploads spill
	// to temporary files.
	maxUploadMemory = 32 << 20

	shutdownTimeout = 10 * time.Second
)

// VersionInfo is the body of GET /version.
type VersionInfo struct {
	App       string `json:"app"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

// Server is the HTTP control surface.
type Server struct {
	base        *config.Config
	logger      *slog.Logger
	history     *database.HistoryDB
	outputDir   string
	crawlerOpts []crawler.Option
	importer    *importer.Importer
	version     VersionInfo
	now         func() time.Time
	router      chi.Router

	mu      sync.Mutex
	lastRun *model.Run
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHistory stores every run in h and serves /debug/last-run from it
// after a restart.
func WithHistory(h *database.HistoryDB) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithOutputDir makes /generate write each knowledge base into dir.
// An empty dir disables writing.
func WithOutputDir(dir string) Option {
	return func(s *Server) {
		s.outputDir = dir
	}
}

// WithCrawlerOptions passes extra options to every spider the server
// creates.
func WithCrawlerOptions(opts ...crawler.Option) Option {
	return func(s *Server) {
		s.crawlerOpts = append(s.crawlerOpts, opts...)
	}
}

// WithVersion sets the build information served by /version.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a Server. base holds the defaults every request starts from;
// it is never modified.
func New(base *config.Config, opts ...Option) *Server {
	if base == nil {
		base = config.NewConfig()
	}
	s := &Server{
		base:   base.Clone(),
		logger: slog.Default(),
		version: VersionInfo{
			App:       AppName,
			GitSHA:    "unknown",
			BuildTime: "unknown",
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.version.App == "" {
		s.version.App = AppName
	}
	s.importer = importer.New(s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleUsage)
	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/debug/last-run", s.handleLastRun)

	r.Post("/generate", s.handleGenerate)
	r.Post("/crawl-preview", s.handleCrawlPreview)
	r.Post("/download-selected", s.handleDownloadSelected)
	r.Route("/bulk", func(r chi.Router) {
		r.Post("/combined", s.handleBulkCombined)
		r.Post("/zip", s.handleBulkZip)
	})
	r.Post("/import", s.handleImport)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
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
		s.logger.Info("server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// LastRun returns the latest run kept in memory, nil before the first
// crawl.
func (s *Server) LastRun() *model.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// remember keeps run as the latest one and stores it in the history.
func (s *Server) remember(ctx context.Context, run *model.Run) {
	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	if s.history == nil {
		return
	}
	if _, err := s.history.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("failed to save run", "start_url", run.StartURL, "error", err)
	}
}

func (s *Server) spiderOptions() []crawler.Option {
	opts := make([]crawler.Option, 0, len(s.crawlerOpts)+1)
	opts = append(opts, crawler.WithLogger(s.logger))
	return append(opts, s.crawlerOpts...)
}
