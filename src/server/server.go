// Package server wires the registry client, the session store and the HTTP
// handlers into one http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/username/directreg/src/config"
	"github.com/username/directreg/src/handlers"
	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/metrics"
	"github.com/username/directreg/src/services"
	"github.com/username/directreg/src/shell"
	"github.com/username/directreg/src/web"
)

const shutdownTimeout = 10 * time.Second

// Server is the front end HTTP server.
type Server struct {
	httpServer *http.Server
	sessions   *shell.Sessions
}

// New builds the server for cfg, talking to the registry through client.
func New(cfg *config.AppConfig, client services.RegistryClient, version string) (*Server, error) {
	handler, sessions, err := NewHandler(cfg, client, version)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.ListenAddr,
			Handler:     handler,
			ReadTimeout: 15 * time.Second,
			// Page renders wait on the registry, which has no timeout of its own.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		sessions: sessions,
	}, nil
}

// NewHandler returns the routed handler and the session store behind it.
func NewHandler(cfg *config.AppConfig, client services.RegistryClient, version string) (http.Handler, *shell.Sessions, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, nil, err
	}

	tokens := shell.NewTokenSource()
	toasts := shell.NewToasts(cfg.NotificationTTL)
	validate := services.PDFValidator(cfg.PDFStructureCheck)
	sessions := shell.NewSessions(cfg.SessionTTL, func(id string) *shell.Shell {
		return shell.New(id, client, tokens, toasts, validate)
	})

	sessionMW := handlers.NewSessionMiddleware(sessions, cfg.SecureCookies)
	uploadLimiter := handlers.NewUploadLimiter(cfg.UploadRatePerMinute, cfg.SessionTTL)
	csrf := handlers.CSRFMiddleware(cfg.MaxUploadSizeBytes)

	pageHandler := handlers.NewPageHandler(templates, cfg.MaxUploadSizeBytes, cfg.SecureCookies, cfg.NotificationTTL)
	uploadHandler := handlers.NewUploadHandler(cfg.MaxUploadSizeBytes)
	healthHandler := handlers.NewHealthHandler(sessions, version)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /static/", web.AssetHandler)
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("POST /upload", sessionMW.Handler(uploadLimiter.Middleware(csrf(http.HandlerFunc(uploadHandler.HandleUpload)))))
	mux.Handle("GET /", sessionMW.Handler(http.HandlerFunc(pageHandler.HandlePage)))

	return handlers.RequestLogger(mux), sessions, nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.L.Info("Server stopped gracefully.", "sessions", s.sessions.Len())
	return nil
}
