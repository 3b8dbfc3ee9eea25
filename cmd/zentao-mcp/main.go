// Package main is the entry point for the zentao-mcp service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aipper/zentao-mcp/api"
	"github.com/aipper/zentao-mcp/internal/config"
	"github.com/aipper/zentao-mcp/internal/policy"
	"github.com/aipper/zentao-mcp/internal/server"
	"github.com/aipper/zentao-mcp/internal/tools"
	"github.com/aipper/zentao-mcp/internal/zentao"
)

var version = "dev"

func main() {
	// A missing .env file is not an error; env vars win over file values.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "zentao-mcp").Str("version", version).Logger()

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("transport", cfg.Transport).Msg("starting zentao-mcp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := server.NewToolRegistry(api.ToolsContract)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse MCP tool contract")
	}
	modeGuard, err := policy.NewGuard(cfg.Mode, cfg.EnableWrite)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid mode configuration")
	}

	gateway, err := zentao.New(zentao.Config{
		BaseURL:        cfg.BaseURL,
		APIPrefix:      cfg.APIPrefix,
		TokenPath:      cfg.TokenPath,
		TokenTTL:       cfg.TokenTTL,
		Timeout:        cfg.RequestTimeout,
		Account:        cfg.Account,
		Password:       cfg.Password,
		DefaultProduct: cfg.ProductID,
		MaxRetries:     cfg.MaxRetries,
	}, log.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway client")
	}

	runner := tools.NewRunner(gateway, cfg.RevealToken)
	logger.Info().Str("mode", modeGuard.Mode()).Bool("write_enabled", cfg.EnableWrite).Msg("execution policy initialized")

	switch cfg.Transport {
	case config.TransportStdio:
		if runErr := server.RunStdio(ctx, os.Stdin, os.Stdout, registry, modeGuard, runner, version, logger); runErr != nil {
			logger.Error().Err(runErr).Msg("stdio runtime stopped with error")
			os.Exit(1)
		}
		logger.Info().Msg("stdio runtime stopped")

	case config.TransportHTTP:
		httpServer := server.NewHTTPServer(cfg, version, api.ToolsContract, registry, modeGuard, runner, log.Logger)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0, // allow SSE streaming without forcing writer timeout.
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				errCh <- serveErr
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr := <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
			os.Exit(1)
		}
		logger.Info().Msg("server stopped gracefully")

	default:
		logger.Fatal().Str("transport", cfg.Transport).Msg("unsupported transport")
	}
}
