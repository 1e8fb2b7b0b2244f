package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv         string
	DBPath         string
	DBDriver       string
	RedisAddr      string
	ArtifactDir    string
	WorkerCount    int
	RenderTimeout  time.Duration
	PollTimeout    time.Duration
	SweepInterval  time.Duration
	RetentionDays  int
	MaxRetries     int
	StatusCacheTTL time.Duration
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		DBPath:         getEnv("DB_PATH", "./data/reports.db"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		ArtifactDir:    getEnv("ARTIFACT_DIR", "./data/artifacts"),
		WorkerCount:    getEnvInt("WORKER_COUNT", 2),
		RenderTimeout:  getEnvDuration("RENDER_TIMEOUT", 25*time.Minute),
		PollTimeout:    getEnvDuration("POLL_TIMEOUT", 5*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Minute),
		RetentionDays:  getEnvInt("RETENTION_DAYS", 30),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		StatusCacheTTL: getEnvDuration("STATUS_CACHE_TTL", 5*time.Second),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
