package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Minute
	defaultRetention     = 30 * 24 * time.Hour
)

// Sweeper runs the two periodic passes over the request store: the retry
// sweep, which moves eligible transient failures back to PENDING, and the
// cleanup sweep, which deletes terminal requests past the retention window.
// One long-lived loop; no external scheduler involved.
type Sweeper struct {
	repo      RequestRepository
	pending   PendingQueue
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewSweeper(repo RequestRepository, pending PendingQueue, logger *zap.Logger, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		repo:      repo,
		pending:   pending,
		logger:    logger.Named("sweeper"),
		interval:  defaultSweepInterval,
		retention: defaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs both sweeps once. Exported so tests and operators can trigger a
// pass without waiting for the ticker.
func (s *Sweeper) Tick(ctx context.Context) {
	if err := s.retrySweep(ctx); err != nil {
		s.logger.Error("retry sweep failed", zap.Error(err))
	}
	if err := s.cleanupSweep(ctx); err != nil {
		s.logger.Error("cleanup sweep failed", zap.Error(err))
	}
}

// retrySweep re-enqueues FAILED transient requests that still have retry
// budget. ResetForRetry re-checks eligibility atomically, so a concurrent
// sweep or a just-exhausted budget simply skips the row.
func (s *Sweeper) retrySweep(ctx context.Context) error {
	refs, err := s.repo.ListRetryable(ctx)
	if err != nil {
		return fmt.Errorf("list retryable: %w", err)
	}

	for _, ref := range refs {
		ok, err := s.repo.ResetForRetry(ctx, ref.ID)
		if err != nil {
			return fmt.Errorf("reset %s: %w", ref.ID, err)
		}
		if !ok {
			continue
		}
		if err := s.pending.Push(ctx, ref.ID, ref.Priority); err != nil {
			return fmt.Errorf("re-enqueue %s: %w", ref.ID, err)
		}
		s.logger.Info("failed request re-queued for retry", zap.String("request_id", ref.ID))
	}
	return nil
}

func (s *Sweeper) cleanupSweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete terminal requests: %w", err)
	}
	if n > 0 {
		s.logger.Info("terminal requests swept", zap.Int64("deleted", n))
	}
	return nil
}
