package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"roomworks/server/internal/adapter/repo"
	"roomworks/server/internal/comfy"
	"roomworks/server/internal/http/handlers"
	httpapi "roomworks/server/internal/http/httpapi"
	"roomworks/server/internal/infra"
	"roomworks/server/internal/redesign"
	"roomworks/server/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, staticDir, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	comfyClient := comfy.NewClient(comfy.Options{
		BaseURL:  cfg.ComfyBaseURL,
		ClientID: cfg.ComfyClientID,
		Logger:   &logger,
	})

	redesigns := repo.NewRedesignRepository(dbpool)
	tokens := repo.NewTokenRepository(dbpool)
	feedback := repo.NewFeedbackRepository(dbpool)

	service := redesign.NewService(redesigns, store, cfg.MaxUploadBytes, logger)
	delivery := redesign.NewDelivery(tokens, redesigns, feedback, logger)

	app := handlers.NewApp(service, delivery, comfyClient, cfg.MaxUploadBytes, logger)
	router := httpapi.NewRouter(app, logger, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, string, error) {
	if cfg.StorageDriver == "minio" {
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		return store, "", err
	}
	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.StoragePath, nil
}
