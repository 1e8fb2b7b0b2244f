package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/repository/models"
	"github.com/campuspulse/report-server/internal/scoring"
)

// MockRequestStore mocks the worker's slice of the request repository.
type MockRequestStore struct {
	ClaimFunc         func(ctx context.Context, id string, now time.Time) (bool, error)
	GetFunc           func(ctx context.Context, id string) (*models.ReportRequest, error)
	MarkCompletedFunc func(ctx context.Context, id, artifactRef string, now time.Time) error
	MarkFailedFunc    func(ctx context.Context, id, message string, kind models.FailureKind, now time.Time) error
}

func (m *MockRequestStore) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id, now)
	}
	return false, errors.New("ClaimFunc not implemented")
}

func (m *MockRequestStore) Get(ctx context.Context, id string) (*models.ReportRequest, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, errors.New("GetFunc not implemented")
}

func (m *MockRequestStore) MarkCompleted(ctx context.Context, id, artifactRef string, now time.Time) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id, artifactRef, now)
	}
	return errors.New("MarkCompletedFunc not implemented")
}

func (m *MockRequestStore) MarkFailed(ctx context.Context, id, message string, kind models.FailureKind, now time.Time) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, message, kind, now)
	}
	return errors.New("MarkFailedFunc not implemented")
}

// MockFeedbackSource mocks the read-only feedback store.
type MockFeedbackSource struct {
	FetchFeedbackFunc func(ctx context.Context, q repository.FeedbackQuery) ([]scoring.FacultyFeedback, error)
}

func (m *MockFeedbackSource) FetchFeedback(ctx context.Context, q repository.FeedbackQuery) ([]scoring.FacultyFeedback, error) {
	if m.FetchFeedbackFunc != nil {
		return m.FetchFeedbackFunc(ctx, q)
	}
	return nil, errors.New("FetchFeedbackFunc not implemented")
}

// MockRenderer mocks the renderer.
type MockRenderer struct {
	RenderFunc func(tpl report.Template, data *report.DataBundle, format report.OutputFormat) ([]byte, error)
}

func (m *MockRenderer) Render(tpl report.Template, data *report.DataBundle, format report.OutputFormat) ([]byte, error) {
	if m.RenderFunc != nil {
		return m.RenderFunc(tpl, data, format)
	}
	return nil, errors.New("RenderFunc not implemented")
}

// MockArtifactStore mocks the artifact store.
type MockArtifactStore struct {
	PutFunc func(ctx context.Context, artifactID string, data []byte, contentType string) (string, error)
}

func (m *MockArtifactStore) Put(ctx context.Context, artifactID string, data []byte, contentType string) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, artifactID, data, contentType)
	}
	return "", errors.New("PutFunc not implemented")
}
