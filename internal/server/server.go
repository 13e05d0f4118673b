// Package server exposes the SMS facade over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpyer/easysms/internal/auth"
	"github.com/hpyer/easysms/internal/config"
	"github.com/hpyer/easysms/internal/easysms"
	"github.com/hpyer/easysms/internal/httputil"
	"github.com/hpyer/easysms/internal/observability"
)

// Server is the HTTP front end for an EasySMS instance.
type Server struct {
	cfg       *config.Config
	router    *chi.Mux
	http      *http.Server
	logger    *slog.Logger
	sms       *easysms.EasySMS
	authSvc   *auth.Service     // nil when server.jwt_secret is unset
	sendRL    *auth.RateLimiter // nil when server.rate_limit is 0
	logBuffer *LogBuffer        // nil when not using buffered logging
	startTime time.Time
}

// New creates a Server with middleware and routes configured.
func New(cfg *config.Config, logger *slog.Logger, svc *easysms.EasySMS) (*Server, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.CORSAllowedOrigins))

	s := &Server{
		cfg:       cfg,
		router:    r,
		logger:    logger,
		sms:       svc,
		startTime: time.Now(),
	}
	if cfg.Server.JWTSecret != "" {
		authSvc, err := auth.NewService(cfg.Server.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		s.authSvc = authSvc
	}
	if cfg.Server.RateLimit > 0 {
		s.sendRL = auth.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	}

	r.Get("/health", s.handleHealth)
	if cfg.Telemetry.Metrics {
		r.Handle("/metrics", observability.MetricsHandler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.authSvc != nil {
			r.Use(auth.RequireAuth(s.authSvc))
		}
		r.Get("/sms/gateways", s.handleGateways)
		r.Get("/logs", s.handleLogs)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			if s.sendRL != nil {
				r.Use(s.sendRL.Middleware)
			}
			r.Post("/sms/send", s.handleSend)
		})
	})

	return s, nil
}

// SetLogBuffer attaches a log buffer for the /api/logs endpoint.
func (s *Server) SetLogBuffer(lb *LogBuffer) {
	s.logBuffer = lb
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.http = s.newHTTPServer()
	s.logger.Info("server starting", "address", s.cfg.Address())
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithReady begins listening. It closes the ready channel once the
// listener is bound, then blocks serving requests.
func (s *Server) StartWithReady(ready chan<- struct{}) error {
	s.http = s.newHTTPServer()
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.logger.Info("server starting", "address", ln.Addr().String())
	close(ready)

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := time.Duration(s.cfg.Server.ShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("shutting down server", "timeout", timeout)
	if s.sendRL != nil {
		s.sendRL.Stop()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

// handleLogs returns recent log entries.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBuffer == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"entries": []any{},
			"message": "log buffering not enabled",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": s.logBuffer.Entries(),
	})
}
