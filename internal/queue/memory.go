package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campuspulse/report-server/internal/repository/models"
)

// MemoryPendingQueue is an in-process PendingQueue with the same semantics
// as the Redis one. Used by tests and single-process deployments that run
// without Redis.
type MemoryPendingQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tiers map[int][]string
}

func NewMemoryPendingQueue() *MemoryPendingQueue {
	q := &MemoryPendingQueue{
		tiers: make(map[int][]string),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *MemoryPendingQueue) Push(ctx context.Context, id string, priority int) error {
	if !validPriority(priority) {
		return fmt.Errorf("invalid priority %d", priority)
	}
	q.mu.Lock()
	q.tiers[priority] = append(q.tiers[priority], id)
	q.mu.Unlock()
	q.cond.Broadcast()
	return nil
}

func (q *MemoryPendingQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)

	// Wake blocked waiters when the deadline or the context expires.
	timer := time.AfterFunc(timeout, q.cond.Broadcast)
	defer timer.Stop()
	stop := context.AfterFunc(ctx, q.cond.Broadcast)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for p := models.PriorityHigh; p <= models.PriorityLow; p++ {
			if tier := q.tiers[p]; len(tier) > 0 {
				id := tier[0]
				q.tiers[p] = tier[1:]
				return id, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !time.Now().Before(deadline) {
			return "", nil
		}
		q.cond.Wait()
	}
}

func (q *MemoryPendingQueue) Remove(ctx context.Context, id string, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	tier := q.tiers[priority]
	for i, v := range tier {
		if v == id {
			q.tiers[priority] = append(tier[:i:i], tier[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports the total number of queued ids across tiers.
func (q *MemoryPendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, tier := range q.tiers {
		n += len(tier)
	}
	return n
}
