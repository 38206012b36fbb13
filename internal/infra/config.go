package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sketchrender/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int

	StorageBackend string
	StoragePath    string
	StorageBaseURL string
	S3Bucket       string
	S3Region       string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	RenderProvider   string
	DashScopeAPIKey  string
	DashScopeBaseURL string
	DashScopeModel   string
	GeminiAPIKey     string
	GeminiModel      string
	SDBaseURL        string
	SDSteps          int
	SDDenoise        float64

	ProviderTimeout time.Duration
	PollInterval    time.Duration
	PollMaxWait     time.Duration

	WorkerPollInterval time.Duration

	CleanWindow int
	CleanBias   float64
	MaskSource  domain.MaskSource
	JPEGQuality int

	MaxUploadBytes   int64
	WriteRateLimit   int
	WriteRateWindow  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:  getEnvInt("DB_MIN_CONNS", 1),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		StoragePath:    getEnv("STORAGE_PATH", "./data/assets"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "eu-west-2"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      time.Minute * time.Duration(getEnvInt("CACHE_TTL_MINUTES", 24*60)),

		RenderProvider:   getEnv("RENDER_PROVIDER", "wanx"),
		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/api/v1"),
		DashScopeModel:   getEnv("DASHSCOPE_MODEL", "wanx-sketch-to-image-v1"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash-preview-image-generation"),
		SDBaseURL:        getEnv("SD_BASE_URL", "http://localhost:7860"),
		SDSteps:          getEnvInt("SD_STEPS", 28),
		SDDenoise:        getEnvFloat("SD_DENOISING_STRENGTH", 0.75),

		ProviderTimeout: time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		PollInterval:    time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 3)),
		PollMaxWait:     time.Second * time.Duration(getEnvInt("POLL_MAX_WAIT_SECONDS", 300)),

		WorkerPollInterval: time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),

		CleanWindow: getEnvInt("CLEAN_WINDOW", 31),
		CleanBias:   getEnvFloat("CLEAN_BIAS", 5),
		MaskSource:  domain.MaskSource(getEnv("MASK_SOURCE", string(domain.MaskSourceCleaned))),
		JPEGQuality: getEnvInt("JPEG_QUALITY", 95),

		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		WriteRateLimit:   getEnvInt("WRITE_RATE_LIMIT", 30),
		WriteRateWindow:  time.Second * time.Duration(getEnvInt("WRITE_RATE_WINDOW_SECONDS", 60)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.DBMaxConns < 1 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS out of range")
	}

	if !domain.ValidMaskSource(cfg.MaskSource) {
		return nil, fmt.Errorf("MASK_SOURCE must be %q or %q", domain.MaskSourceCleaned, domain.MaskSourceOriginal)
	}

	switch cfg.StorageBackend {
	case "file":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.CleanWindow < 3 {
		return nil, fmt.Errorf("CLEAN_WINDOW must be at least 3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
