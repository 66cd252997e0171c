// Command serve loads the fitted car price pipeline once at startup and
// exposes it on POST /predict. A startup failure of any kind aborts the
// process before the listener opens.
package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mohsenim/carprice/pipeline"
	"github.com/mohsenim/carprice/server"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Optional YAML override; the default configuration needs no file.
	cfg, err := server.LoadConfig(os.Getenv("CARPRICE_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	runtime.GOMAXPROCS(cfg.CPU)

	pipe, err := pipeline.Load(cfg.ArtifactPath)
	if err != nil {
		logger.Fatal().Err(err).Str("artifact", cfg.ArtifactPath).Msg("failed to load model artifact")
	}
	logger.Info().Str("artifact", cfg.ArtifactPath).Msg("model artifact loaded")

	srv := server.New(cfg, pipe, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Stop(); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}
}
