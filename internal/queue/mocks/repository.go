package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/campuspulse/report-server/internal/repository/models"
)

// MockRequestRepository is a function-field mock of the queue's
// RequestRepository interface.
type MockRequestRepository struct {
	CreateFunc               func(ctx context.Context, req *models.ReportRequest) error
	GetFunc                  func(ctx context.Context, id string) (*models.ReportRequest, error)
	ListByRequesterFunc      func(ctx context.Context, requester string, status models.RequestStatus, limit, offset int) ([]models.ReportRequest, error)
	MarkCancelledFunc        func(ctx context.Context, id, requester string, now time.Time) (bool, error)
	ListRetryableFunc        func(ctx context.Context) ([]models.PendingRef, error)
	ResetForRetryFunc        func(ctx context.Context, id string) (bool, error)
	PendingRefsFunc          func(ctx context.Context) ([]models.PendingRef, error)
	DeleteTerminalBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockRequestRepository) Create(ctx context.Context, req *models.ReportRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return errors.New("CreateFunc not implemented")
}

func (m *MockRequestRepository) Get(ctx context.Context, id string) (*models.ReportRequest, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, errors.New("GetFunc not implemented")
}

func (m *MockRequestRepository) ListByRequester(ctx context.Context, requester string, status models.RequestStatus, limit, offset int) ([]models.ReportRequest, error) {
	if m.ListByRequesterFunc != nil {
		return m.ListByRequesterFunc(ctx, requester, status, limit, offset)
	}
	return nil, errors.New("ListByRequesterFunc not implemented")
}

func (m *MockRequestRepository) MarkCancelled(ctx context.Context, id, requester string, now time.Time) (bool, error) {
	if m.MarkCancelledFunc != nil {
		return m.MarkCancelledFunc(ctx, id, requester, now)
	}
	return false, errors.New("MarkCancelledFunc not implemented")
}

func (m *MockRequestRepository) ListRetryable(ctx context.Context) ([]models.PendingRef, error) {
	if m.ListRetryableFunc != nil {
		return m.ListRetryableFunc(ctx)
	}
	return nil, errors.New("ListRetryableFunc not implemented")
}

func (m *MockRequestRepository) ResetForRetry(ctx context.Context, id string) (bool, error) {
	if m.ResetForRetryFunc != nil {
		return m.ResetForRetryFunc(ctx, id)
	}
	return false, errors.New("ResetForRetryFunc not implemented")
}

func (m *MockRequestRepository) PendingRefs(ctx context.Context) ([]models.PendingRef, error) {
	if m.PendingRefsFunc != nil {
		return m.PendingRefsFunc(ctx)
	}
	return nil, errors.New("PendingRefsFunc not implemented")
}

func (m *MockRequestRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteTerminalBeforeFunc != nil {
		return m.DeleteTerminalBeforeFunc(ctx, cutoff)
	}
	return 0, errors.New("DeleteTerminalBeforeFunc not implemented")
}

// MockPendingQueue is a function-field mock of the PendingQueue interface.
type MockPendingQueue struct {
	PushFunc   func(ctx context.Context, id string, priority int) error
	PopFunc    func(ctx context.Context, timeout time.Duration) (string, error)
	RemoveFunc func(ctx context.Context, id string, priority int) error
}

func (m *MockPendingQueue) Push(ctx context.Context, id string, priority int) error {
	if m.PushFunc != nil {
		return m.PushFunc(ctx, id, priority)
	}
	return errors.New("PushFunc not implemented")
}

func (m *MockPendingQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	if m.PopFunc != nil {
		return m.PopFunc(ctx, timeout)
	}
	return "", errors.New("PopFunc not implemented")
}

func (m *MockPendingQueue) Remove(ctx context.Context, id string, priority int) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id, priority)
	}
	return errors.New("RemoveFunc not implemented")
}
