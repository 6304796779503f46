package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xenking/vitrine/pkg/httpmiddleware"
)

var _ httpmiddleware.Limiter = (*RateLimiter)(nil)

// RateLimiter is a fixed window counter shared by every API replica.
type RateLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// NewRateLimiter allows limit requests per window and key.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, max: limit, window: window}
}

// Allow increments the counter of key's current window.
func (l *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (httpmiddleware.Decision, error) {
	start := now.Truncate(l.window)
	k := fmt.Sprintf(keyRate, key, start.Unix())

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.PExpire(ctx, k, l.window+time.Second)
		return nil
	})
	if err != nil {
		return httpmiddleware.Decision{}, fmt.Errorf("counting request: %w", err)
	}

	n := int(incr.Val())
	return httpmiddleware.Decision{
		Allowed:   n <= l.max,
		Limit:     l.max,
		Remaining: max(l.max-n, 0),
		ResetAt:   start.Add(l.window),
	}, nil
}
