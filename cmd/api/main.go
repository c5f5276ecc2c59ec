package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/http/handlers"
	"studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/geoip"
	"studio/internal/jobs"
	"studio/internal/middleware"
	"studio/internal/providers/did"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := did.NewClient(did.Options{
		APIKey:         cfg.DIDAPIKey,
		BaseURL:        cfg.DIDBaseURL,
		SourceURL:      cfg.AvatarSourceURL,
		ResultFormat:   cfg.ResultFormat,
		DefaultVoiceID: cfg.DefaultVoiceID,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build provider client")
	}
	if !client.HasCredentials() {
		logger.Warn().Msg("D_ID_API_KEY is not set; talk submissions will be rejected")
	}

	manager := jobs.NewManager(jobs.Options{
		Client:       client,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
		Retention:    cfg.JobRetention,
		Logger:       &logger,
	})
	go manager.Run(ctx)

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable; locale detection falls back to headers")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	app := &handlers.App{Config: cfg, Logger: logger, Jobs: manager}
	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
