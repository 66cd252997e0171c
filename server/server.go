package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohsenim/carprice/pkg/errors"
)

// Server is the prediction service: a fitted pipeline behind a
// net/http server with recovery, logging and timeout middleware.
type Server struct {
	server *http.Server
	config Config
	logger zerolog.Logger
}

// New builds the server around an already-loaded predictor. The
// predictor must be fully initialized; New never loads anything itself.
func New(cfg Config, predictor Predictor, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	NewHandlers(predictor, cfg.InputColumns, logger).Register(mux)

	chain := Chain(
		RecoveryMiddleware(logger),
		RequestLogger(logger),
		TimeoutMiddleware(cfg.Timeout, logger),
	)

	return &Server{
		server: &http.Server{
			Addr:    cfg.Addr,
			Handler: chain(mux),
			// Read/write bounds sit above the per-request budget so the
			// timeout middleware is what callers observe.
			ReadTimeout:  cfg.Timeout + 5*time.Second,
			WriteTimeout: cfg.Timeout + 5*time.Second,
			IdleTimeout:  120 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// Start runs the listener until Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info().Msg("shutting down prediction server")
	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
