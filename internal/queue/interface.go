package queue

import (
	"context"
	"time"

	"github.com/campuspulse/report-server/internal/repository/models"
)

// RequestRepository is the durable request store the queue mutates through.
type RequestRepository interface {
	Create(ctx context.Context, req *models.ReportRequest) error
	Get(ctx context.Context, id string) (*models.ReportRequest, error)
	ListByRequester(ctx context.Context, requester string, status models.RequestStatus, limit, offset int) ([]models.ReportRequest, error)
	MarkCancelled(ctx context.Context, id, requester string, now time.Time) (bool, error)
	ListRetryable(ctx context.Context) ([]models.PendingRef, error)
	ResetForRetry(ctx context.Context, id string) (bool, error)
	PendingRefs(ctx context.Context) ([]models.PendingRef, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PendingQueue holds the ids of PENDING requests, one FIFO per priority
// tier. Pop drains higher tiers first and blocks up to the given timeout;
// it returns an empty id when nothing arrived in time.
type PendingQueue interface {
	Push(ctx context.Context, id string, priority int) error
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Remove(ctx context.Context, id string, priority int) error
}

// Cacher is the read-through cache in front of status and list queries.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
