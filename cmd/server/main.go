package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gpusizer/gpusizer/internal/api"
	"github.com/gpusizer/gpusizer/internal/catalog"
	"github.com/gpusizer/gpusizer/internal/config"
	"github.com/gpusizer/gpusizer/internal/hub"
	"github.com/gpusizer/gpusizer/internal/resolver"
	"github.com/gpusizer/gpusizer/internal/store"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	zerolog.SetGlobalLevel(config.LogLevelOrInfo(cfg.LogLevel))

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := store.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	if cfg.ModelSeedPath != "" {
		n, err := store.SeedFromFile(ctx, repo, cfg.ModelSeedPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.ModelSeedPath).Msg("model seed failed")
		} else if n > 0 {
			log.Info().Int("models", n).Str("path", cfg.ModelSeedPath).Msg("seeded model records")
		}
	}

	devices := catalog.NewStore(cfg.DeviceCatalogPath)
	if err := devices.Load(); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DeviceCatalogPath).Msg("load device catalog")
	}
	snap := devices.Snapshot()
	log.Info().Int("devices", len(snap.Devices)).Int("skipped", len(snap.Skipped)).
		Str("path", cfg.DeviceCatalogPath).Msg("device catalog loaded")

	hubClient := hub.New(cfg.HubBaseURL, cfg.HubToken)
	res := resolver.New(repo, hubClient)
	srv := api.NewServer(repo, res, devices)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("gpusizer API server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
