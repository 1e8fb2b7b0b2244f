package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campuspulse/report-server/internal/config"
	"github.com/campuspulse/report-server/internal/queue"
	"github.com/campuspulse/report-server/internal/render"
	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/storage"
	"github.com/campuspulse/report-server/internal/worker"
	"github.com/campuspulse/report-server/pkg/cache"
	dbbuilder "github.com/campuspulse/report-server/pkg/database"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger  *zap.Logger
	dbPool  *sql.DB
	cache   *cache.Cache
	queue   *queue.Service
	sweeper *queue.Sweeper
	pool    *worker.Pool
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("schema init failed: %w", err)
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))

	requestRepo := repository.NewRequestRepository(dbPool)
	feedbackRepo := repository.NewFeedbackRepository(dbPool)
	pending := queue.NewRedisPendingQueue(cacheClient.Client())

	queueService := queue.NewService(requestRepo, pending, logger,
		queue.WithMaxRetries(cfg.MaxRetries),
		queue.WithCache(cacheClient, cfg.StatusCacheTTL),
	)

	artifactStore, err := storage.NewFileStore(cfg.ArtifactDir, logger)
	if err != nil {
		return nil, fmt.Errorf("artifact store init failed: %w", err)
	}

	renderer := render.New(logger)

	pool := worker.NewPool(requestRepo, pending, feedbackRepo, renderer, artifactStore, logger,
		worker.WithWorkers(cfg.WorkerCount),
		worker.WithRenderTimeout(cfg.RenderTimeout),
		worker.WithPollTimeout(cfg.PollTimeout),
		worker.WithStatusNotifier(queueService),
	)

	sweeper := queue.NewSweeper(requestRepo, pending, logger,
		queue.WithSweepInterval(cfg.SweepInterval),
		queue.WithRetention(time.Duration(cfg.RetentionDays)*24*time.Hour),
	)

	// Recover state a previous process left behind: fail renders that were
	// in flight when it died, then rebuild the pending lists.
	if _, err := requestRepo.FailOrphanedProcessing(ctx,
		time.Now().UTC().Add(-cfg.RenderTimeout),
		"worker terminated before finishing the render"); err != nil {
		return nil, fmt.Errorf("orphan recovery failed: %w", err)
	}
	if _, err := queueService.RestorePending(ctx); err != nil {
		return nil, fmt.Errorf("pending restore failed: %w", err)
	}

	return &App{
		logger:  logger,
		dbPool:  dbPool,
		cache:   cacheClient,
		queue:   queueService,
		sweeper: sweeper,
		pool:    pool,
	}, nil
}

// Queue exposes the queue service for transport layers built on top.
func (a *App) Queue() *queue.Service {
	return a.queue
}

// Run starts the worker pool and sweeper and blocks until a shutdown
// signal is received, then drains with a timeout.
func (a *App) Run() error {
	a.logger.Info("application starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.pool.Run(gctx) })
	g.Go(func() error { return a.sweeper.Run(gctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")
	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			a.logger.Error("worker shutdown error", zap.Error(err))
		} else {
			a.logger.Info("graceful shutdown completed successfully")
		}
	case <-time.After(shutdownTimeout):
		a.logger.Warn("shutdown deadline exceeded, abandoning in-flight work")
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	_ = a.logger.Sync()
	return nil
}
