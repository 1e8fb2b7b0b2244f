package e2e

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/report-server/internal/queue"
	"github.com/campuspulse/report-server/internal/render"
	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/repository/models"
	"github.com/campuspulse/report-server/internal/storage"
	"github.com/campuspulse/report-server/internal/worker"
)

type pipeline struct {
	db        *sql.DB
	requests  *repository.RequestRepository
	feedback  *repository.FeedbackRepository
	pending   *queue.MemoryPendingQueue
	artifacts *storage.MemoryStore
	service   *queue.Service
	pool      *worker.Pool
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.EnsureSchema(context.Background(), db))

	requests := repository.NewRequestRepository(db)
	feedback := repository.NewFeedbackRepository(db)
	pending := queue.NewMemoryPendingQueue()
	artifacts := storage.NewMemoryStore()
	logger := zap.NewNop()

	service := queue.NewService(requests, pending, logger, queue.WithMaxRetries(2))
	pool := worker.NewPool(requests, pending, feedback, render.New(logger), artifacts, logger,
		worker.WithPollTimeout(50*time.Millisecond))

	return &pipeline{
		db:        db,
		requests:  requests,
		feedback:  feedback,
		pending:   pending,
		artifacts: artifacts,
		service:   service,
		pool:      pool,
	}
}

// seedCohort inserts three respondents whose weighted scores come out to
// exactly 96, 82 and 58.
func (p *pipeline) seedCohort(t *testing.T) {
	t.Helper()

	seed := func(facultyID int64, name, subject, comments string, ratings [][2]float64) {
		res, err := p.db.Exec(`
			INSERT INTO faculty_feedback (faculty_id, faculty_name, subject, section, semester, academic_year, comments, created_at)
			VALUES (?, ?, ?, 'A', 'Fall', '2025', ?, '2025-10-01T00:00:00Z')
		`, facultyID, name, subject, comments)
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		for i, r := range ratings {
			_, err := p.db.Exec(`
				INSERT INTO feedback_ratings (feedback_id, question_id, question_text, rating, weight)
				VALUES (?, ?, 'How clear were the lectures?', ?, ?)
			`, id, i+1, int(r[0]), r[1])
			require.NoError(t, err)
		}
	}

	seed(1, "Dr. Auma", "Math", "great lectures", [][2]float64{{5, 4}, {4, 1}})
	seed(2, "Dr. Okello", "Physics", "", [][2]float64{{5, 7}, {2, 3}})
	seed(3, "Dr. Nankya", "Chemistry", "hard to follow", [][2]float64{{3, 9}, {2, 1}})
}

func submitInput(format report.OutputFormat) queue.SubmitInput {
	return queue.SubmitInput{
		Requester:  "admin-1",
		ReportType: report.TypeSectionSummary,
		Format:     format,
		Parameters: map[string]string{"section": "A", "semester": "Fall", "academic_year": "2025"},
		Priority:   models.PriorityNormal,
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.seedCohort(t)

	id, err := p.service.Submit(ctx, submitInput(report.FormatCSV))
	require.NoError(t, err)

	status, err := p.service.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.Status)

	popped, err := p.pending.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, id, popped)
	p.pool.Process(ctx, popped)

	status, err = p.service.GetStatus(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, status.Status)
	require.NotEmpty(t, status.ArtifactRef)
	require.NotNil(t, status.StartedAt)
	require.NotNil(t, status.CompletedAt)
	assert.Empty(t, status.ErrorMessage)

	data, contentType, ok := p.artifacts.Get(status.ArtifactRef)
	require.True(t, ok, "artifact must be retrievable by reference")
	assert.Equal(t, "text/csv", contentType)

	text := string(data)
	assert.Contains(t, text, "Total Responses,3")
	assert.Contains(t, text, "Average Score,78.67")
	assert.Contains(t, text, "Highest Score,96.00")
	assert.Contains(t, text, "Lowest Score,58.00")
	assert.Contains(t, text, "Grade A+,1")
	assert.Contains(t, text, "Grade B,1")
	assert.Contains(t, text, "Grade F,1")
}

func TestPipelineAllFormats(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.seedCohort(t)

	for _, format := range []report.OutputFormat{report.FormatPDF, report.FormatXLSX, report.FormatCSV, report.FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			id, err := p.service.Submit(ctx, submitInput(format))
			require.NoError(t, err)

			popped, err := p.pending.Pop(ctx, time.Second)
			require.NoError(t, err)
			p.pool.Process(ctx, popped)

			status, err := p.service.GetStatus(ctx, id)
			require.NoError(t, err)
			require.Equal(t, models.StatusCompleted, status.Status, "error: %s", status.ErrorMessage)

			data, contentType, ok := p.artifacts.Get(status.ArtifactRef)
			require.True(t, ok)
			assert.Equal(t, format.ContentType(), contentType)
			assert.NotEmpty(t, data)
		})
	}
}

func TestPipelineCancellation(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.seedCohort(t)

	t.Run("pending request can be cancelled", func(t *testing.T) {
		id, err := p.service.Submit(ctx, submitInput(report.FormatJSON))
		require.NoError(t, err)

		ok, err := p.service.Cancel(ctx, id, "admin-1")
		require.NoError(t, err)
		assert.True(t, ok)

		status, err := p.service.GetStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, status.Status)
		assert.NotNil(t, status.CompletedAt)

		// The id was removed from the pending structure too.
		popped, err := p.pending.Pop(ctx, 50*time.Millisecond)
		require.NoError(t, err)
		assert.Empty(t, popped)
	})

	t.Run("cancel after processing started returns false", func(t *testing.T) {
		id, err := p.service.Submit(ctx, submitInput(report.FormatJSON))
		require.NoError(t, err)

		claimed, err := p.requests.Claim(ctx, id, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, claimed)

		ok, err := p.service.Cancel(ctx, id, "admin-1")
		require.NoError(t, err)
		assert.False(t, ok)

		status, err := p.service.GetStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, status.Status, "cancel must not touch an in-flight request")

		// Drain so later subtests see an empty queue.
		_, _ = p.pending.Pop(ctx, 50*time.Millisecond)
	})
}

func TestPipelinePriorityOrdering(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.seedCohort(t)

	in := submitInput(report.FormatJSON)
	in.Priority = models.PriorityLow
	lowID, err := p.service.Submit(ctx, in)
	require.NoError(t, err)

	in.Priority = models.PriorityNormal
	normalID, err := p.service.Submit(ctx, in)
	require.NoError(t, err)

	in.Priority = models.PriorityHigh
	highID, err := p.service.Submit(ctx, in)
	require.NoError(t, err)

	var order []string
	for i := 0; i < 3; i++ {
		id, err := p.pending.Pop(ctx, time.Second)
		require.NoError(t, err)
		order = append(order, id)
	}
	assert.Equal(t, []string{highID, normalID, lowID}, order)
}

func TestPipelineRetrySweep(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	// No cohort seeded and no feedback tables touched: instead, fail the
	// request artificially to drive the sweep.

	id, err := p.service.Submit(ctx, submitInput(report.FormatJSON))
	require.NoError(t, err)
	popped, err := p.pending.Pop(ctx, time.Second)
	require.NoError(t, err)

	claimed, err := p.requests.Claim(ctx, popped, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, p.requests.MarkFailed(ctx, id, "artifact write failed: disk full",
		models.FailureTransient, time.Now().UTC()))

	sweeper := queue.NewSweeper(p.requests, p.pending, zap.NewNop())
	sweeper.Tick(ctx)

	status, err := p.service.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.Status)
	assert.Equal(t, 1, status.RetryCount)
	assert.Empty(t, status.ErrorMessage)

	requeued, err := p.pending.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, id, requeued)
}

func TestPipelineRestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	id, err := p.service.Submit(ctx, submitInput(report.FormatJSON))
	require.NoError(t, err)

	// Simulate losing the in-memory pending structure.
	lost, err := p.pending.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, id, lost)

	n, err := p.service.RestorePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restored, err := p.pending.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, id, restored)
}
