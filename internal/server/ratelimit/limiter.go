// Package ratelimit implements fixed-window request counters in Redis.
//
// Each key gets INCR on every hit; the first hit of a window sets the
// window TTL. Keys are namespaced with "rl:".
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any failure talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

const keyPrefix = "rl:"

// Limiter allows at most limit hits per key within each window.
type Limiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: client, limit: int64(limit), window: window}
}

// NewRedisClient opens a client for addr and checks it with PING.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return client, nil
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.incrementWithTTL(ctx, keyPrefix+key)
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return count, nil
	}

	// A crash between INCR and EXPIRE would leave a counter that never
	// resets; repair it.
	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl == -1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
