//go:generate mockgen -source=server.go -destination=server_mock.go -package=server
package server

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/fx"

	"pidwatch/internal/app/errors"
	"pidwatch/internal/app/metrics"
	"pidwatch/internal/app/reporting"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

// Server exposes the metrics registry over HTTP
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Addr() string
}

type server struct {
	address    string
	registry   metrics.Registry
	shutdowner fx.Shutdowner
	reporter   reporting.Reporter
	httpServer *http.Server
	bound      atomic.Pointer[string]
	running    atomic.Bool
	wg         sync.WaitGroup
	log        logger.Logger
}

// NewServer creates a metrics server bound to the configured address once started
func NewServer(
	cfg *config.Config,
	registry metrics.Registry,
	shutdowner fx.Shutdowner,
	reporter reporting.Reporter,
	log logger.Logger,
) Server {
	return &server{
		address:    cfg.Address(),
		registry:   registry,
		shutdowner: shutdowner,
		reporter:   reporter,
		log:        log.WithComponent("SERVER"),
	}
}

// Addr returns the bound address, or the configured one before Start
func (s *server) Addr() string {
	if bound := s.bound.Load(); bound != nil {
		return *bound
	}

	return s.address
}

// Start binds the listener synchronously and serves in the background
func (s *server) Start(ctx context.Context) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("%w %s: %w", errors.ErrFailedToBind, s.address, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	s.running.Store(true)

	bound := listener.Addr().String()
	s.bound.Store(&bound)

	s.log.Info().Msgf("Serving metrics on http://%s%s", bound, config.MetricsPath)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Metrics server stopped unexpectedly")
		}
	}()

	return nil
}

// Stop gracefully shuts the HTTP server down
func (s *server) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()

	if err != nil {
		return err
	}

	s.log.Info().Msg("Server stopped")

	return nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+config.MetricsPath, s.handleMetrics)

	return mux
}

// handleMetrics renders the whole registry for every request; it never touches metric values
func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer

	if err := s.registry.Render(&buf); err != nil {
		s.log.Error().Err(err).Msg("Metrics registry is inconsistent, shutting down")
		s.reporter.Capture(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		if shutdownErr := s.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
			s.log.Error().Err(shutdownErr).Msg("Failed to request shutdown")
		}

		return
	}

	w.Header().Set("Content-Type", metrics.ContentType)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write metrics response")
	}
}
