package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLoginLimit  = 10
	defaultLoginWindow = time.Minute
)

// LoginLimiter throttles authentication attempts per handle using a
// fixed window in Redis. Key format: login_attempts:<handle>
type LoginLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLoginLimiter creates a LoginLimiter wrapping the given Redis client.
// Non-positive limit or window fall back to the defaults.
func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	if limit <= 0 {
		limit = defaultLoginLimit
	}
	if window <= 0 {
		window = defaultLoginWindow
	}
	return &LoginLimiter{client: client, limit: int64(limit), window: window}
}

// Allow counts one attempt for handle and reports whether it is within the
// current window's budget. The window starts on the first attempt.
func (l *LoginLimiter) Allow(ctx context.Context, handle string) (bool, error) {
	key := l.key(handle)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("login limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("login limiter expire: %w", err)
		}
	}
	return n <= l.limit, nil
}

func (l *LoginLimiter) key(handle string) string {
	return "login_attempts:" + handle
}
