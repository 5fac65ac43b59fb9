package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomworks/server/internal/adapter/repo"
	"roomworks/server/internal/comfy"
	"roomworks/server/internal/domain"
	"roomworks/server/internal/infra"
	"roomworks/server/internal/jobs"
	"roomworks/server/internal/notify"
	"roomworks/server/internal/redesign"
	"roomworks/server/internal/storage"
)

const claimInterval = 2 * time.Second

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	client := comfy.NewClient(comfy.Options{
		BaseURL:  cfg.ComfyBaseURL,
		ClientID: cfg.ComfyClientID,
		Logger:   &logger,
	})
	engine := comfy.NewEngine(client, comfy.EngineOptions{
		Text2ImgWait: cfg.Text2ImgWait,
		Img2ImgWait:  cfg.Img2ImgWait,
		Logger:       &logger,
	})
	builder := comfy.SelectBuilder(ctx, client)

	if !client.Health(ctx) {
		logger.Warn().Str("backend", cfg.ComfyBaseURL).Msg("worker: generation backend unreachable at startup")
	}

	redesigns := repo.NewRedesignRepository(pool)
	tokens := repo.NewTokenRepository(pool)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.MailerSendAPIKey != "" {
		notifier = notify.NewMailerSend(cfg.MailerSendAPIKey, cfg.MailFromName, cfg.MailFromEmail, logger)
	} else {
		logger.Warn().Msg("worker: MAILERSEND_API_KEY missing, result emails disabled")
	}

	processor := redesign.NewProcessor(
		redesigns,
		tokens,
		store,
		client,
		engine,
		builder,
		notifier,
		redesign.ProcessorConfig{
			Checkpoint:    cfg.ComfyCheckpoint,
			Img2ImgWait:   cfg.Img2ImgWait,
			TokenTTL:      cfg.TokenTTL,
			ResultBaseURL: cfg.PublicBaseURL + "/v1/results",
		},
		logger,
	)

	sweeper := jobs.NewTokenSweeper(tokens, 0, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to start token sweeper")
	}
	defer sweeper.Stop()

	logger.Info().Msg("worker: started")
	if err := run(ctx, redesigns, processor, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func run(ctx context.Context, redesigns domain.RedesignRepository, processor *redesign.Processor, logger infra.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := redesigns.ClaimPending(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				sleep(ctx, claimInterval)
				continue
			}
			logger.Error().Err(err).Msg("worker: failed to claim request")
			sleep(ctx, claimInterval)
			continue
		}

		logger.Info().Str("request_id", req.ID).Msg("worker: picked request")
		if err := processor.Process(ctx, req); err != nil {
			// Terminal state already recorded by the processor.
			logger.Error().Err(err).Str("request_id", req.ID).Msg("worker: request failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
}
