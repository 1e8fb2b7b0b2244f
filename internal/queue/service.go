// Package queue owns the report request lifecycle: submission, status,
// cancellation, listing and the periodic sweeps. All state transitions go
// through the durable request store; the pending lists only carry ids.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/repository/models"
)

var (
	ErrValidation = errors.New("invalid submission")
	ErrNotFound   = repository.ErrRequestNotFound
)

const (
	defaultMaxRetries     = 3
	defaultStatusCacheTTL = 5 * time.Second
)

// SubmitInput carries everything a caller provides when requesting a
// report. Requester identity comes from the auth collaborator upstream.
type SubmitInput struct {
	Requester  string              `validate:"required"`
	ReportType string              `validate:"required"`
	Format     report.OutputFormat `validate:"required"`
	Parameters map[string]string
	Priority   int `validate:"min=1,max=3"`
}

// Service is the single queue object the whole process shares: submission,
// worker callbacks and status queries all reference it instead of package
// globals.
type Service struct {
	repo       RequestRepository
	pending    PendingQueue
	cache      Cacher
	sf         singleflight.Group
	validate   *validator.Validate
	logger     *zap.Logger
	maxRetries int
	cacheTTL   time.Duration
}

type ServiceOption func(*Service)

func WithMaxRetries(n int) ServiceOption {
	return func(s *Service) { s.maxRetries = n }
}

// WithCache enables read-through caching of status and list queries.
func WithCache(c Cacher, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func NewService(repo RequestRepository, pending PendingQueue, logger *zap.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("repo must not be nil")
	}
	if pending == nil {
		panic("pending queue must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &Service{
		repo:       repo,
		pending:    pending,
		validate:   validator.New(),
		logger:     logger.Named("queue"),
		maxRetries: defaultMaxRetries,
		cacheTTL:   defaultStatusCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the input, persists a PENDING request and enqueues its
// id. Validation failures are returned synchronously and never create a
// request.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (string, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Format.Valid() {
		return "", fmt.Errorf("%w: unknown output format %q", ErrValidation, in.Format)
	}
	if !report.KnownType(in.ReportType) {
		return "", fmt.Errorf("%w: unknown report type %q", ErrValidation, in.ReportType)
	}

	req := &models.ReportRequest{
		ID:           uuid.NewString(),
		Requester:    in.Requester,
		ReportType:   in.ReportType,
		OutputFormat: string(in.Format),
		Parameters:   in.Parameters,
		Priority:     in.Priority,
		Status:       models.StatusPending,
		CreatedAt:    time.Now().UTC(),
		MaxRetries:   s.maxRetries,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return "", fmt.Errorf("persist request: %w", err)
	}

	if err := s.pending.Push(ctx, req.ID, req.Priority); err != nil {
		// The request is durable; RestorePending re-enqueues it on the
		// next restart. Surface the degraded state in the logs only.
		s.logger.Error("enqueue failed after persist",
			zap.String("request_id", req.ID), zap.Error(err))
	}

	s.logger.Info("report request submitted",
		zap.String("request_id", req.ID),
		zap.String("requester", in.Requester),
		zap.String("report_type", in.ReportType),
		zap.String("format", string(in.Format)),
		zap.Int("priority", in.Priority))
	return req.ID, nil
}

// GetStatus returns the request record for status polling.
func (s *Service) GetStatus(ctx context.Context, id string) (*models.ReportRequest, error) {
	if s.cache == nil {
		return s.repo.Get(ctx, id)
	}
	return findAndCache(ctx, s.cache, &s.sf, statusCacheKey(id), s.cacheTTL, s.logger,
		func(fetchCtx context.Context) (*models.ReportRequest, error) {
			return s.repo.Get(fetchCtx, id)
		})
}

// List returns the requester's requests, optionally filtered by status.
// When caching is enabled, list results are only invalidated by TTL expiry:
// a submission or state transition may be absent from List for up to the
// cache TTL plus jitter. GetStatus by id is invalidated eagerly and never
// lags like this.
func (s *Service) List(ctx context.Context, requester string, status models.RequestStatus, limit, offset int) ([]models.ReportRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if s.cache == nil {
		return s.repo.ListByRequester(ctx, requester, status, limit, offset)
	}
	key := fmt.Sprintf("reports:list:%s:%s:%d:%d", requester, status, limit, offset)
	return findAndCache(ctx, s.cache, &s.sf, key, s.cacheTTL, s.logger,
		func(fetchCtx context.Context) ([]models.ReportRequest, error) {
			return s.repo.ListByRequester(fetchCtx, requester, status, limit, offset)
		})
}

// Cancel cancels a PENDING request owned by requester. Returns false when
// the request is already past PENDING: an in-flight render is never
// interrupted, it completes or fails normally.
func (s *Service) Cancel(ctx context.Context, id, requester string) (bool, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if req.Status != models.StatusPending {
		return false, nil
	}

	ok, err := s.repo.MarkCancelled(ctx, id, requester, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("cancel request: %w", err)
	}
	if !ok {
		// Lost the race against a worker claim, or wrong requester.
		return false, nil
	}

	if err := s.pending.Remove(ctx, id, req.Priority); err != nil {
		// Harmless: the worker's claim on a CANCELLED id is a no-op.
		s.logger.Warn("dequeue of cancelled id failed",
			zap.String("request_id", id), zap.Error(err))
	}
	s.invalidateStatus(ctx, id)

	s.logger.Info("report request cancelled",
		zap.String("request_id", id), zap.String("requester", requester))
	return true, nil
}

// RestorePending rebuilds the pending lists from the durable store. Run at
// startup so requests persisted but never enqueued (crash, Redis flush)
// are picked up again.
func (s *Service) RestorePending(ctx context.Context) (int, error) {
	refs, err := s.repo.PendingRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending refs: %w", err)
	}
	restored := 0
	for _, ref := range refs {
		if err := s.pending.Push(ctx, ref.ID, ref.Priority); err != nil {
			return restored, fmt.Errorf("re-enqueue %s: %w", ref.ID, err)
		}
		restored++
	}
	if restored > 0 {
		s.logger.Info("pending queue restored", zap.Int("requests", restored))
	}
	return restored, nil
}

// InvalidateStatus drops the cached status entry after a worker-side
// transition so polls observe it promptly.
func (s *Service) InvalidateStatus(ctx context.Context, id string) {
	s.invalidateStatus(ctx, id)
}

func (s *Service) invalidateStatus(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statusCacheKey(id)); err != nil {
		s.logger.Warn("status cache invalidation failed",
			zap.String("request_id", id), zap.Error(err))
	}
}

func statusCacheKey(id string) string {
	return "reports:status:" + id
}
