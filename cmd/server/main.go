package main

import (
	"context"
	"log"

	"github.com/campuspulse/report-server/internal/app"
	"github.com/campuspulse/report-server/internal/config"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.LoadFromEnv()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting report server",
		zap.String("env", cfg.AppEnv),
		zap.Int("workers", cfg.WorkerCount),
		zap.String("artifact_dir", cfg.ArtifactDir))

	ctx := context.Background()
	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := application.Run(); err != nil {
		logger.Fatal("Report server exited with error", zap.Error(err))
	}
}
