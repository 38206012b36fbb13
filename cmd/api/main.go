package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"sketchrender/internal/adapter/repo"
	"sketchrender/internal/http/handlers"
	"sketchrender/internal/http/httpapi"
	"sketchrender/internal/imaging"
	"sketchrender/internal/infra"
	"sketchrender/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	app := &handlers.App{
		Logger:            logger,
		Jobs:              repo.NewJobRepository(dbpool),
		Assets:            repo.NewAssetRepository(dbpool),
		Store:             store,
		Providers:         availableProviders(cfg),
		DefaultProvider:   cfg.RenderProvider,
		Clean:             imaging.CleanOptions{Window: cfg.CleanWindow, Bias: cfg.CleanBias},
		DefaultMaskSource: cfg.MaskSource,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		WriteRateLimit:    cfg.WriteRateLimit,
		WriteRateWindow:   cfg.WriteRateWindow,
	}

	allowedOrigins := strings.Split(getEnvDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")
	router := httpapi.NewRouter(app, allowedOrigins)

	server := infra.NewHTTPServer(cfg, logger, router)

	go func() {
		if err := server.Start(); err != nil {
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

func newStore(cfg *infra.Config) (storage.Store, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(cfg.S3Bucket, cfg.S3Region)
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
}

// availableProviders mirrors the worker's wiring: wanx and sd are always
// routable, gemini only with credentials.
func availableProviders(cfg *infra.Config) []string {
	providers := []string{"wanx", "sd"}
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, "gemini")
	}
	return providers
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
