package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository counts requests per key in fixed windows.
type RateLimitRepository interface {
	CheckLimit(ctx context.Context, key string, limit int) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RedisRateLimitRepo struct {
	client *redis.Client
	prefix string
}

func NewRedisRateLimitRepo(client *redis.Client, prefix string) *RedisRateLimitRepo {
	return &RedisRateLimitRepo{client: client, prefix: prefix}
}

func (r *RedisRateLimitRepo) key(k string) string {
	return r.prefix + k
}

// CheckLimit reports whether another request fits into the current window.
func (r *RedisRateLimitRepo) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	count, err := r.client.Get(ctx, r.key(key)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return count < limit, nil
}

// Increment counts a request, starting the window on the first one.
func (r *RedisRateLimitRepo) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit increment: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, r.key(key), window).Err(); err != nil {
			return count, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count, nil
}
