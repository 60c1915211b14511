package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sujala/deuce/internal/logger"
)

// Server provides the HTTP server for the vault/block/file API (§6).
//
// The server supports graceful shutdown with a configurable timeout.
type Server struct {
	server       *http.Server
	deps         Deps
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server bound to deps. The server is
// created in a stopped state; call Start to begin serving requests.
func NewServer(config APIConfig, deps Deps) *Server {
	config.applyDefaults()

	s := &Server{deps: deps, config: config}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      s.router(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Start starts the API HTTP server and blocks until the context is
// cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.KeyPort, s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call more than once and
// safe to call concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.KeyError, err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}

// Handler exposes the underlying http.Handler, mainly for tests that
// want to drive the server with httptest without a real listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
