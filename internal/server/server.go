// Package server exposes the reverse-mapping pipeline over HTTP. The API is
// read-only: every endpoint serves the latest introspection result, and
// clients opt into a fresh run with ?refresh=1.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/handler"
	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/server/middleware"
	"github.com/remodeldb/remodel/internal/service"
	"github.com/remodeldb/remodel/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	CORSMethods     []string      // defaults to GET and OPTIONS
	RateLimit       int           // requests per window per client IP, 0 disables
	RateWindow      time.Duration // sliding window for RateLimit
	EnableUI        bool
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       120,
		RateWindow:      time.Minute,
		EnableUI:        true,
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the database
// introspector, and the cached pipeline result shared by all handlers.
type Server struct {
	cfg          Config
	router       chi.Router
	introspector introspect.Introspector
	preview      *service.Preview
	genOpts      gen.Options
	httpServer   *http.Server
	logger       *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, in introspect.Introspector, preview *service.Preview, genOpts gen.Options, logger *slog.Logger) *Server {
	s := &Server{
		cfg:          cfg,
		introspector: in,
		preview:      preview,
		genOpts:      genOpts,
		logger:       logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	corsMethods := s.cfg.CORSMethods
	if len(corsMethods) == 0 {
		corsMethods = []string{"GET", "OPTIONS"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: corsMethods,
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
	}

	// --- Health checks ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI document for this API ---
	openapiH := handler.NewOpenAPIHandler(s.preview, s.cfg.Version)
	r.Get("/openapi.json", openapiH.Serve)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		tables := handler.NewTablesHandler(s.preview)
		mappingH := handler.NewMappingHandler(s.preview)
		entities := handler.NewEntitiesHandler(s.preview, s.genOpts)

		r.Get("/tables", tables.List)
		r.Get("/tables/{name}", tables.Get)
		r.Get("/mapping", mappingH.Get)
		r.Get("/entities", entities.List)
		r.Get("/entities/{name}", entities.Get)
		r.Get("/openapi.json", openapiH.Serve)
	})

	// --- Embedded preview UI ---
	if s.cfg.EnableUI {
		// Serve the embedded SPA from internal/ui/dist.
		distFS, err := fs.Sub(ui.Dist, "dist")
		if err != nil {
			s.logger.Error("failed to create sub filesystem for UI", "error", err)
		} else {
			fileServer := http.FileServer(http.FS(distFS))
			r.Handle("/assets/*", fileServer)
			r.Get("/favicon.svg", func(w http.ResponseWriter, r *http.Request) {
				fileServer.ServeHTTP(w, r)
			})
			// SPA fallback: serve index.html for all UI routes
			spaHandler := func(w http.ResponseWriter, r *http.Request) {
				f, err := distFS.Open("index.html")
				if err != nil {
					http.Error(w, "UI not available", http.StatusNotFound)
					return
				}
				defer f.Close()
				stat, _ := f.Stat()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				http.ServeContent(w, r, "index.html", stat.ModTime(), f.(io.ReadSeeker))
			}
			r.Get("/tables", spaHandler)
			r.Get("/mapping", spaHandler)
			r.Get("/entities", spaHandler)
			r.Get("/", spaHandler)
		}
	}

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the introspected
// database is reachable, or 503 when the connection is degraded.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.introspector.Ping(r.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database connection.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.introspector.Disconnect(); err != nil {
		s.logger.Warn("database disconnect", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
