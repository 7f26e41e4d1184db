// Package api provides the HTTP preview service: a thin wrapper around the
// planner that lets a caller POST a source/target schema pair and get back
// the rendered migration plan without running the CLI.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/axonops/mygrate/internal/config"
	"github.com/axonops/mygrate/internal/loader/sqlfile"
	"github.com/axonops/mygrate/internal/metrics"
	"github.com/axonops/mygrate/internal/planner"
	"github.com/axonops/mygrate/internal/schema"
)

// Server is the preview HTTP service.
type Server struct {
	config  *config.Config
	planner *planner.Planner
	logger  *slog.Logger
	metrics *metrics.Metrics
	router  chi.Router
	server  *http.Server
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithMetrics swaps in an already-constructed Metrics instance (e.g. one
// shared with the CLI's own metrics registration) instead of a fresh one.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer builds the preview service's router. p computes plans; cfg
// supplies listen address and timeouts.
func NewServer(cfg *config.Config, p *planner.Planner, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		config:  cfg,
		planner: p,
		logger:  logger,
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	if s.config.Metrics.Enabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			s.metrics.Handler().ServeHTTP(w, r)
		})
	}
	r.Post("/v1/plan", s.handlePlan)

	s.router = r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// planRequest is the POST /v1/plan body: directories of .sql files for the
// source and target schemas. A missing SourceDir means db_from is nil.
type planRequest struct {
	SourceDir string `json:"source_dir"`
	TargetDir string `json:"target_dir"`
}

type operationJSON struct {
	Kind string `json:"kind"`
	SQL  string `json:"sql"`
}

type planResponse struct {
	RunID      string          `json:"run_id"`
	Operations []operationJSON `json:"operations"`
	Errors1215 []string        `json:"errors_1215"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return
	}
	if req.TargetDir == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("target_dir is required"))
		return
	}

	to, err := sqlfile.Load(req.TargetDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("load target schema: %w", err))
		return
	}

	var from *schema.Database
	if req.SourceDir != "" {
		from, err = sqlfile.Load(req.SourceDir)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("load source schema: %w", err))
			return
		}
	}

	start := time.Now()
	result := s.planner.Plan(from, to)
	kindCounts := map[string]int{}
	for _, op := range result.Operations {
		kindCounts[planner.Kind(op)]++
	}
	s.metrics.ObservePlan(time.Since(start), kindCounts, len(result.Errors1215))

	resp := planResponse{
		RunID:      result.RunID.String(),
		Errors1215: result.Errors1215,
	}
	for _, op := range result.Operations {
		resp.Operations = append(resp.Operations, operationJSON{Kind: planner.Kind(op), SQL: op.String()})
	}

	w.Header().Set("Content-Type", "application/json")
	if len(resp.Errors1215) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Start starts the HTTP server and blocks until it stops or errors.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}
	s.logger.Info("starting preview server", slog.String("address", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the router for testing.
func (s *Server) Router() http.Handler { return s.router }
