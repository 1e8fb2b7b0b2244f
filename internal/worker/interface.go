package worker

import (
	"context"
	"time"

	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/repository/models"
	"github.com/campuspulse/report-server/internal/scoring"
)

// RequestStore is the slice of the request repository a worker mutates.
type RequestStore interface {
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	Get(ctx context.Context, id string) (*models.ReportRequest, error)
	MarkCompleted(ctx context.Context, id, artifactRef string, now time.Time) error
	MarkFailed(ctx context.Context, id, message string, kind models.FailureKind, now time.Time) error
}

// PendingQueue is the pop side of the pending id structure.
type PendingQueue interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// FeedbackSource is the read-only feedback data store.
type FeedbackSource interface {
	FetchFeedback(ctx context.Context, q repository.FeedbackQuery) ([]scoring.FacultyFeedback, error)
}

// Renderer produces artifact bytes from a template and data bundle.
type Renderer interface {
	Render(tpl report.Template, data *report.DataBundle, format report.OutputFormat) ([]byte, error)
}

// ArtifactStore persists rendered bytes and returns a durable reference.
type ArtifactStore interface {
	Put(ctx context.Context, artifactID string, data []byte, contentType string) (string, error)
}
