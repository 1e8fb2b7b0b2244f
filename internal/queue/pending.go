package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuspulse/report-server/internal/repository/models"
)

const pendingKeyPrefix = "reports:pending:"

// RedisPendingQueue keeps one Redis list per priority tier. BRPOP checks
// the keys in tier order, which gives blocking pop with strict priority
// precedence and FIFO within a tier. The durable request store stays the
// source of truth: these lists can be rebuilt from it at any time.
type RedisPendingQueue struct {
	client *redis.Client
}

func NewRedisPendingQueue(client *redis.Client) *RedisPendingQueue {
	return &RedisPendingQueue{client: client}
}

func pendingKey(priority int) string {
	return fmt.Sprintf("%s%d", pendingKeyPrefix, priority)
}

func validPriority(priority int) bool {
	return priority >= models.PriorityHigh && priority <= models.PriorityLow
}

func (q *RedisPendingQueue) Push(ctx context.Context, id string, priority int) error {
	if !validPriority(priority) {
		return fmt.Errorf("invalid priority %d", priority)
	}
	if err := q.client.LPush(ctx, pendingKey(priority), id).Err(); err != nil {
		return fmt.Errorf("push pending id: %w", err)
	}
	return nil
}

func (q *RedisPendingQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	keys := []string{
		pendingKey(models.PriorityHigh),
		pendingKey(models.PriorityNormal),
		pendingKey(models.PriorityLow),
	}
	res, err := q.client.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("pop pending id: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}
	return res[1], nil
}

func (q *RedisPendingQueue) Remove(ctx context.Context, id string, priority int) error {
	if !validPriority(priority) {
		return fmt.Errorf("invalid priority %d", priority)
	}
	if err := q.client.LRem(ctx, pendingKey(priority), 1, id).Err(); err != nil {
		return fmt.Errorf("remove pending id: %w", err)
	}
	return nil
}
