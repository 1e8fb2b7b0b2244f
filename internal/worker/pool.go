// Package worker runs the report generation pool: pop a pending id, claim
// it, build the data bundle, render, store the artifact and record the
// outcome. Workers share nothing in-process; the request store's atomic
// claim is the only coordination point.
//
// Priority draining is strict: a tier is only attempted once every higher
// tier is empty. Sustained high-priority load therefore starves lower
// tiers; there is deliberately no aging.
//
// The render timeout is a soft limit. The deadline cancels the feedback
// fetch and the artifact write, but a render already in progress is not
// interrupted; the request stays PROCESSING until the render returns, at
// which point it is failed with the timeout classification.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campuspulse/report-server/internal/render"
	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/repository/models"
	"github.com/campuspulse/report-server/internal/scoring"
	"github.com/campuspulse/report-server/internal/storage"
)

const (
	defaultWorkers       = 2
	defaultRenderTimeout = 25 * time.Minute
	defaultPollTimeout   = 5 * time.Second
)

// StatusNotifier is told about worker-side transitions so cached status
// reads stay fresh. Optional.
type StatusNotifier interface {
	InvalidateStatus(ctx context.Context, id string)
}

type Pool struct {
	requests RequestStore
	pending  PendingQueue
	feedback FeedbackSource
	renderer Renderer
	store    ArtifactStore
	notifier StatusNotifier
	logger   *zap.Logger

	workers       int
	renderTimeout time.Duration
	pollTimeout   time.Duration
}

type PoolOption func(*Pool)

func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRenderTimeout bounds how long one request may spend being built and
// rendered before it is failed with a timeout message.
func WithRenderTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.renderTimeout = d
		}
	}
}

func WithPollTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.pollTimeout = d
		}
	}
}

func WithStatusNotifier(n StatusNotifier) PoolOption {
	return func(p *Pool) { p.notifier = n }
}

func NewPool(requests RequestStore, pending PendingQueue, feedback FeedbackSource, renderer Renderer, store ArtifactStore, logger *zap.Logger, opts ...PoolOption) *Pool {
	if requests == nil || pending == nil || feedback == nil || renderer == nil || store == nil {
		panic("nil dependency provided to worker pool")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		requests:      requests,
		pending:       pending,
		feedback:      feedback,
		renderer:      renderer,
		store:         store,
		logger:        logger.Named("worker"),
		workers:       defaultWorkers,
		renderTimeout: defaultRenderTimeout,
		pollTimeout:   defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until the context is cancelled and all workers have drained.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			return p.runWorker(ctx, id)
		})
	}
	return g.Wait()
}

func (p *Pool) runWorker(ctx context.Context, workerID int) error {
	logger := p.logger.With(zap.Int("worker", workerID))
	logger.Info("worker started")

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("worker stopping")
			return nil
		}

		id, err := p.pending.Pop(ctx, p.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("worker stopping")
				return nil
			}
			logger.Error("pending pop failed", zap.Error(err))
			time.Sleep(p.pollTimeout)
			continue
		}
		if id == "" {
			continue
		}

		p.Process(ctx, id)
	}
}

// Process handles one popped id end to end. A failed claim means the
// request was cancelled, already handled or delivered twice; that is a
// no-op, not an error.
func (p *Pool) Process(ctx context.Context, id string) {
	claimed, err := p.requests.Claim(ctx, id, time.Now().UTC())
	if err != nil {
		p.logger.Error("claim failed", zap.String("request_id", id), zap.Error(err))
		return
	}
	if !claimed {
		p.logger.Debug("skipping unclaimable request", zap.String("request_id", id))
		return
	}
	p.notifyStatus(ctx, id)

	req, err := p.requests.Get(ctx, id)
	if err != nil {
		p.logger.Error("load claimed request failed", zap.String("request_id", id), zap.Error(err))
		return
	}

	start := time.Now()
	buildCtx, cancel := context.WithTimeout(ctx, p.renderTimeout)
	artifactRef, err := p.build(buildCtx, req)
	cancel()

	// ctx, not buildCtx: the outcome must be recorded even after timeout.
	if err != nil {
		if errors.Is(buildCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("report generation timed out after %s: %w", p.renderTimeout, context.DeadlineExceeded)
		}
		kind := classifyFailure(err)
		if mErr := p.requests.MarkFailed(ctx, id, err.Error(), kind, time.Now().UTC()); mErr != nil {
			p.logger.Error("record failure failed", zap.String("request_id", id), zap.Error(mErr))
			return
		}
		p.notifyStatus(ctx, id)
		p.logger.Warn("report request failed",
			zap.String("request_id", id),
			zap.String("failure_kind", string(kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}

	if err := p.requests.MarkCompleted(ctx, id, artifactRef, time.Now().UTC()); err != nil {
		p.logger.Error("record completion failed", zap.String("request_id", id), zap.Error(err))
		return
	}
	p.notifyStatus(ctx, id)
	p.logger.Info("report request completed",
		zap.String("request_id", id),
		zap.String("artifact_ref", artifactRef),
		zap.Duration("elapsed", time.Since(start)))
}

// build produces and stores the artifact for one claimed request.
func (p *Pool) build(ctx context.Context, req *models.ReportRequest) (string, error) {
	tpl, ok := report.TemplateFor(req.ReportType)
	if !ok {
		return "", fmt.Errorf("%w: no template for report type %q", render.ErrDataMissing, req.ReportType)
	}
	format := report.OutputFormat(req.OutputFormat)
	if !format.Valid() {
		return "", fmt.Errorf("%w: %q", render.ErrUnsupportedFormat, req.OutputFormat)
	}

	rows, err := p.feedback.FetchFeedback(ctx, feedbackQuery(req.Parameters))
	if err != nil {
		return "", err
	}

	bundle := BuildBundle(req, rows)
	data, err := p.renderer.Render(tpl, bundle, format)
	if err != nil {
		return "", err
	}

	artifactID := fmt.Sprintf("%s-%s.%s", req.ReportType, req.ID, format.Extension())
	ref, err := p.store.Put(ctx, artifactID, data, format.ContentType())
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (p *Pool) notifyStatus(ctx context.Context, id string) {
	if p.notifier != nil {
		p.notifier.InvalidateStatus(ctx, id)
	}
}

func feedbackQuery(params map[string]string) repository.FeedbackQuery {
	q := repository.FeedbackQuery{
		Section:      params["section"],
		Semester:     params["semester"],
		AcademicYear: params["academic_year"],
	}
	if raw, ok := params["faculty_id"]; ok {
		var id int64
		if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
			q.FacultyID = id
		}
	}
	return q
}

// classifyFailure decides retry eligibility. Deterministic failures
// (scoring input, render data, format) are permanent: retrying them only
// burns the retry budget. Store and timeout failures are transient.
// Anything unrecognized is treated as permanent so the sweep never loops
// on an unknown deterministic failure.
func classifyFailure(err error) models.FailureKind {
	switch {
	case errors.Is(err, repository.ErrFeedbackUnavailable),
		errors.Is(err, storage.ErrWriteFailed),
		errors.Is(err, context.DeadlineExceeded):
		return models.FailureTransient
	case errors.Is(err, scoring.ErrInvalidScoringInput),
		errors.Is(err, render.ErrDataMissing),
		errors.Is(err, render.ErrUnsupportedFormat):
		return models.FailurePermanent
	default:
		return models.FailurePermanent
	}
}
