package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sketchrender/internal/adapter/repo"
	"sketchrender/internal/cache"
	"sketchrender/internal/domain"
	"sketchrender/internal/imaging"
	"sketchrender/internal/infra"
	"sketchrender/internal/pipeline"
	"sketchrender/internal/providers/render"
	"sketchrender/internal/storage"
)

type jobWorker struct {
	ctx          context.Context
	logger       infra.Logger
	jobs         domain.JobRepository
	pipeline     *pipeline.Pipeline
	pollInterval time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	var renderCache *cache.RenderCache
	if cfg.RedisAddr != "" {
		renderCache = cache.NewRenderCache(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword), cfg.CacheTTL)
	} else {
		logger.Warn().Msg("worker: redis not configured, render cache disabled")
	}

	generators, err := initGenerators(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure render providers")
	}

	jobs := repo.NewJobRepository(pool)
	assets := repo.NewAssetRepository(pool)

	pipe, err := pipeline.New(pipeline.Options{
		Logger:          logger,
		Jobs:            jobs,
		Assets:          assets,
		Store:           store,
		Cache:           renderCache,
		Generators:      generators,
		DefaultProvider: cfg.RenderProvider,
		Clean:           imaging.CleanOptions{Window: cfg.CleanWindow, Bias: cfg.CleanBias},
		MaskSource:      cfg.MaskSource,
		JPEGQuality:     cfg.JPEGQuality,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to assemble pipeline")
	}

	worker := &jobWorker{
		ctx:          ctx,
		logger:       logger,
		jobs:         jobs,
		pipeline:     pipe,
		pollInterval: cfg.WorkerPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func newStore(cfg *infra.Config) (storage.Store, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(cfg.S3Bucket, cfg.S3Region)
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
}

func initGenerators(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (map[string]render.Generator, error) {
	poll := render.PollConfig{Interval: cfg.PollInterval, MaxWait: cfg.PollMaxWait}
	generators := map[string]render.Generator{
		"wanx": render.NewWanx(render.WanxOptions{
			APIKey:         cfg.DashScopeAPIKey,
			BaseURL:        cfg.DashScopeBaseURL,
			Model:          cfg.DashScopeModel,
			Logger:         logger,
			Poll:           poll,
			RequestTimeout: cfg.ProviderTimeout,
		}),
		"sd": render.NewSD(render.SDOptions{
			BaseURL:        cfg.SDBaseURL,
			Steps:          cfg.SDSteps,
			Denoise:        cfg.SDDenoise,
			Logger:         logger,
			RequestTimeout: cfg.ProviderTimeout,
		}),
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := render.NewGemini(ctx, render.GeminiOptions{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		generators["gemini"] = gemini
	} else {
		logger.Warn().Msg("worker: gemini api key missing, gemini provider disabled")
	}
	if _, ok := generators[cfg.RenderProvider]; !ok {
		logger.Warn().Str("provider", cfg.RenderProvider).Msg("worker: default provider unavailable, falling back to wanx")
		cfg.RenderProvider = "wanx"
	}
	return generators, nil
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.Claim(w.ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNoJobAvailable) {
				w.sleep()
				continue
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
			w.sleep()
			continue
		}

		w.handleJob(job)
	}
}

func (w *jobWorker) sleep() {
	select {
	case <-w.ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *jobWorker) handleJob(job *domain.RenderJob) {
	w.logger.Info().Str("job_id", job.ID).Str("provider", job.Provider).Msg("worker: picked job")

	status := domain.JobStatusSucceeded
	var errMsg *string
	if err := w.pipeline.Run(w.ctx, job); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		status = domain.JobStatusFailed
		msg := err.Error()
		errMsg = &msg
	}

	// A shutdown mid-job cancels w.ctx; the terminal status still has to land
	// or the claimed job stays running forever.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.jobs.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: update status failed")
	}
}
