// Package server serves the built site: gzip-compressed static files,
// serve-time search, livereload, health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"

	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/logfields"
	"github.com/torn-open/docsmith/internal/metrics"
	"github.com/torn-open/docsmith/internal/search"
)

// Options configures the HTTP server.
type Options struct {
	SiteDir string
	Port    int

	// SearchStore backs /api/search; nil disables the endpoint.
	SearchStore *search.Store

	// LiveReload serves /livereload and /livereload.js when set.
	LiveReload *LiveReloadHub

	Recorder metrics.Recorder

	// MetricsHandler is mounted at MetricsPath when both are set.
	MetricsHandler http.Handler
	MetricsPath    string
	HealthPath     string
}

// Server is the docs preview/serve HTTP server.
type Server struct {
	opts Options
	http *http.Server
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.HealthPath == "" {
		opts.HealthPath = "/healthz"
	}

	s := &Server{opts: opts}
	s.http = &http.Server{
		Addr:        fmt.Sprintf(":%d", opts.Port),
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// No write timeout: livereload holds SSE connections open.
		IdleTimeout: 300 * time.Second,
	}
	return s
}

// Handler builds the route set; exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(s.opts.HealthPath, s.handleHealth)

	if s.opts.SearchStore != nil {
		mux.HandleFunc("/api/search", s.handleSearch)
	}
	if s.opts.LiveReload != nil {
		mux.Handle("/livereload", s.opts.LiveReload)
		mux.HandleFunc("/livereload.js", serveLiveReloadScript)
	}
	if s.opts.MetricsHandler != nil && s.opts.MetricsPath != "" {
		mux.Handle(s.opts.MetricsPath, s.opts.MetricsHandler)
	}

	mux.Handle("/", gziphandler.GzipHandler(http.FileServer(http.Dir(s.opts.SiteDir))))
	return mux
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening",
			slog.String("addr", s.http.Addr),
			logfields.Path(s.opts.SiteDir))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Close()
	}
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	s.opts.Recorder.IncSearchQuery()

	results, err := s.opts.SearchStore.Search(r.Context(), q, limit)
	if err != nil {
		if derrors.IsCategory(err, derrors.CategoryValidation) {
			http.Error(w, "invalid search query", http.StatusBadRequest)
			return
		}
		slog.Warn("Search query failed", slog.String("query", q), logfields.Error(err))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(results)
}
