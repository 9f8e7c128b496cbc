// Package web provides the HTTP server and handlers for the Data Sweeper UI
// and its JSON API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/metrics"
	mw "github.com/JonMunkholm/sweeper/internal/web/middleware"
)

const rateLimitPruneInterval = time.Minute

// Server is the HTTP server for the Data Sweeper application.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	sessions *core.SessionStore
	metrics  *metrics.Metrics
	limiter  *mw.RateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the router. m may be nil, in which case /metrics is not
// mounted.
func NewServer(cfg *config.Config, service *core.Service, sessions *core.SessionStore, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		sessions: sessions,
		metrics:  m,
		router:   chi.NewRouter(),
	}
	if cfg.RateLimit.Enabled {
		s.limiter = mw.NewRateLimiter(mw.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/sessions", s.handleCreateSession)
	s.router.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Post("/delete", s.handleDeleteSession)
		r.Post("/files/{fileID}/process", s.handleProcess)
		r.Get("/files/{fileID}/download", s.handleDownload)
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		if origins := s.cfg.Security.AllowedOrigins; len(origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", mw.APIKeyHeader},
				ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
				MaxAge:         300,
			}))
		}
		r.Use(mw.APIKeyAuth(s.cfg.Security.APIKeys, s.respondError))
		r.Post("/inspect", s.handleInspect)
		r.Post("/convert", s.handleConvert)
	})

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RunMaintenance prunes idle rate limit buckets until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) {
	if s.limiter == nil {
		<-ctx.Done()
		return
	}
	s.limiter.Run(ctx, rateLimitPruneInterval)
}

type healthResponse struct {
	Status   string             `json:"status"`
	Sessions int                `json:"sessions"`
	Jobs     core.LimiterStatus `json:"jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		Jobs:     s.service.Limiter().Status(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Styles are inline in the layout and charts are inline SVG.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}
