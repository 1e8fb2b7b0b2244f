package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type fetchFunc[T any] func(ctx context.Context) (T, error)

const cacheSetTimeout = 5 * time.Second

// addTTLJitter spreads expirations by up to a few seconds so hot status
// keys do not all expire on the same tick.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Intn(2000)-1000)*time.Millisecond
}

// findAndCache is read-through caching with singleflight: concurrent misses
// on the same key trigger one store read, the value is written back with a
// jittered TTL. Cache errors degrade to a direct read, never to a failure.
func findAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn fetchFunc[T],
) (T, error) {
	var zero T

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		return cached, nil
	case errors.Is(err, redis.Nil):
		logger.Debug("cache miss", zap.String("key", key))
	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		setCtx, cancel := context.WithTimeout(context.Background(), cacheSetTimeout)
		defer cancel()
		if err := c.Set(setCtx, key, value, addTTLJitter(ttl)); err != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache type mismatch for key %q", key)
	}
	return value, nil
}
