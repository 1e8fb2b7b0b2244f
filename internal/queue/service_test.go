package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/report-server/internal/queue/mocks"
	"github.com/campuspulse/report-server/internal/report"
	"github.com/campuspulse/report-server/internal/repository/models"
)

func validInput() SubmitInput {
	return SubmitInput{
		Requester:  "admin-1",
		ReportType: report.TypeSectionSummary,
		Format:     report.FormatCSV,
		Parameters: map[string]string{"section": "A", "semester": "Fall", "academic_year": "2025"},
		Priority:   models.PriorityNormal,
	}
}

func TestNewService(t *testing.T) {
	t.Run("nil repo panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewService(nil, &mocks.MockPendingQueue{}, zap.NewNop())
		})
	})

	t.Run("nil pending queue panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewService(&mocks.MockRequestRepository{}, nil, zap.NewNop())
		})
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and enqueues", func(t *testing.T) {
		var created *models.ReportRequest
		var pushedID string
		var pushedPriority int

		repo := &mocks.MockRequestRepository{
			CreateFunc: func(ctx context.Context, req *models.ReportRequest) error {
				created = req
				return nil
			},
		}
		pending := &mocks.MockPendingQueue{
			PushFunc: func(ctx context.Context, id string, priority int) error {
				pushedID = id
				pushedPriority = priority
				return nil
			},
		}

		svc := NewService(repo, pending, zap.NewNop(), WithMaxRetries(5))
		id, err := svc.Submit(ctx, validInput())

		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.NotNil(t, created)
		assert.Equal(t, id, created.ID)
		assert.Equal(t, models.StatusPending, created.Status)
		assert.Equal(t, 0, created.RetryCount)
		assert.Equal(t, 5, created.MaxRetries)
		assert.Equal(t, id, pushedID)
		assert.Equal(t, models.PriorityNormal, pushedPriority)
	})

	t.Run("rejects missing requester", func(t *testing.T) {
		svc := NewService(&mocks.MockRequestRepository{}, &mocks.MockPendingQueue{}, zap.NewNop())
		in := validInput()
		in.Requester = ""
		_, err := svc.Submit(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects priority outside tiers", func(t *testing.T) {
		svc := NewService(&mocks.MockRequestRepository{}, &mocks.MockPendingQueue{}, zap.NewNop())
		in := validInput()
		in.Priority = 4
		_, err := svc.Submit(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		svc := NewService(&mocks.MockRequestRepository{}, &mocks.MockPendingQueue{}, zap.NewNop())
		in := validInput()
		in.Format = report.OutputFormat("docx")
		_, err := svc.Submit(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects unknown report type", func(t *testing.T) {
		svc := NewService(&mocks.MockRequestRepository{}, &mocks.MockPendingQueue{}, zap.NewNop())
		in := validInput()
		in.ReportType = "payroll"
		_, err := svc.Submit(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("validation failure creates nothing", func(t *testing.T) {
		repo := &mocks.MockRequestRepository{
			CreateFunc: func(ctx context.Context, req *models.ReportRequest) error {
				t.Fatal("Create must not be called for invalid input")
				return nil
			},
		}
		svc := NewService(repo, &mocks.MockPendingQueue{}, zap.NewNop())
		in := validInput()
		in.Priority = 0
		_, err := svc.Submit(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending request is cancelled and dequeued", func(t *testing.T) {
		removed := false
		repo := &mocks.MockRequestRepository{
			GetFunc: func(ctx context.Context, id string) (*models.ReportRequest, error) {
				return &models.ReportRequest{ID: id, Requester: "admin-1",
					Priority: models.PriorityHigh, Status: models.StatusPending}, nil
			},
			MarkCancelledFunc: func(ctx context.Context, id, requester string, now time.Time) (bool, error) {
				assert.Equal(t, "admin-1", requester)
				return true, nil
			},
		}
		pending := &mocks.MockPendingQueue{
			RemoveFunc: func(ctx context.Context, id string, priority int) error {
				assert.Equal(t, models.PriorityHigh, priority)
				removed = true
				return nil
			},
		}

		svc := NewService(repo, pending, zap.NewNop())
		ok, err := svc.Cancel(ctx, "req-1", "admin-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, removed)
	})

	t.Run("processing request cannot be cancelled", func(t *testing.T) {
		repo := &mocks.MockRequestRepository{
			GetFunc: func(ctx context.Context, id string) (*models.ReportRequest, error) {
				return &models.ReportRequest{ID: id, Status: models.StatusProcessing}, nil
			},
			MarkCancelledFunc: func(ctx context.Context, id, requester string, now time.Time) (bool, error) {
				t.Fatal("MarkCancelled must not be called once processing")
				return false, nil
			},
		}
		svc := NewService(repo, &mocks.MockPendingQueue{}, zap.NewNop())
		ok, err := svc.Cancel(ctx, "req-1", "admin-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lost race against a worker claim", func(t *testing.T) {
		repo := &mocks.MockRequestRepository{
			GetFunc: func(ctx context.Context, id string) (*models.ReportRequest, error) {
				return &models.ReportRequest{ID: id, Requester: "admin-1", Status: models.StatusPending}, nil
			},
			MarkCancelledFunc: func(ctx context.Context, id, requester string, now time.Time) (bool, error) {
				// Worker claimed between the read and the conditional update.
				return false, nil
			},
		}
		svc := NewService(repo, &mocks.MockPendingQueue{}, zap.NewNop())
		ok, err := svc.Cancel(ctx, "req-1", "admin-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := &mocks.MockRequestRepository{
			GetFunc: func(ctx context.Context, id string) (*models.ReportRequest, error) {
				return nil, ErrNotFound
			},
		}
		svc := NewService(repo, &mocks.MockPendingQueue{}, zap.NewNop())
		_, err := svc.Cancel(ctx, "missing", "admin-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRestorePending(t *testing.T) {
	ctx := context.Background()

	var pushed []string
	repo := &mocks.MockRequestRepository{
		PendingRefsFunc: func(ctx context.Context) ([]models.PendingRef, error) {
			return []models.PendingRef{
				{ID: "a", Priority: models.PriorityHigh},
				{ID: "b", Priority: models.PriorityLow},
			}, nil
		},
	}
	pending := &mocks.MockPendingQueue{
		PushFunc: func(ctx context.Context, id string, priority int) error {
			pushed = append(pushed, id)
			return nil
		},
	}

	svc := NewService(repo, pending, zap.NewNop())
	n, err := svc.RestorePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, pushed)
}
