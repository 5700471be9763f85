package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
	"github.com/noah-isme/stockroom-api/pkg/response"
)

// RateLimiter bounds how many requests a client key may issue per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// WindowLimiter is an in-memory fixed-window counter. The window restarts
// when it has fully elapsed since the first request of the current window,
// so a burst straddling a window seam can admit up to twice the limit; that
// approximation is intentional. State is process-local and must move to the
// Redis limiter when running more than one instance.
type WindowLimiter struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	clients *expirable.LRU[string, *windowCounter]
}

type windowCounter struct {
	start time.Time
	count int
}

// NewWindowLimiter constructs the in-memory limiter.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{
		limit:  limit,
		window: window,
		// Idle entries expire at twice the window so the LRU cleans up
		// after itself without a sweeper goroutine.
		clients: expirable.NewLRU[string, *windowCounter](4096, nil, 2*window),
	}
}

// Allow increments the client's counter and reports whether it is within
// the limit.
func (l *WindowLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	counter, ok := l.clients.Get(key)
	if !ok || now.Sub(counter.start) >= l.window {
		counter = &windowCounter{start: now}
		l.clients.Add(key, counter)
	}
	counter.count++
	return counter.count <= l.limit
}

// RedisLimiter shares the window counter across instances using INCR with a
// TTL set on the first hit of each window. It fails open on Redis errors.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRedisLimiter constructs the Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow implements RateLimiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := "ratelimit:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limit counter unavailable", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Warn("rate limit expiry failed", zap.Error(err))
		}
	}
	return count <= int64(l.limit)
}

type rateLimitCounter interface {
	IncRateLimited()
}

// RateLimit denies requests once a client key exhausts its window. It must
// be mounted before JWT validation so invalid tokens still count.
func RateLimit(limiter RateLimiter, metrics rateLimitCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), c.ClientIP()) {
			if metrics != nil {
				metrics.IncRateLimited()
			}
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
