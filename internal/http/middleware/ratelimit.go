package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter counts requests per client IP in fixed windows. With a Redis
// client the counters are shared between instances; without one they are
// kept in process memory.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
	Log    *zap.Logger
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window, Log: log}
}

func (r *RateLimiter) Handler() fiber.Handler {
	if r.Redis == nil {
		return limiter.New(limiter.Config{
			Max:          r.Limit,
			Expiration:   r.Window,
			KeyGenerator: func(c *fiber.Ctx) string { return r.Prefix + ":" + c.IP() },
			LimitReached: func(c *fiber.Ctx) error {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(r.Window.Seconds())))
				return fiber.ErrTooManyRequests
			},
		})
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := fmt.Sprintf("%s:%s", r.Prefix, c.IP())

		count, ttl, err := r.hit(ctx, key)
		if err != nil {
			// Fail open when Redis is unreachable.
			r.Log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if count > int64(r.Limit) {
			retry := r.Window
			if ttl > 0 {
				retry = ttl
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			return fiber.ErrTooManyRequests
		}
		return c.Next()
	}
}

// hit opens the window for key if needed and counts one request in a single
// MULTI block, so a counter can never be left without an expiry.
func (r *RateLimiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SetArgs(ctx, key, 0, redis.SetArgs{Mode: "NX", TTL: r.Window})
		incr = p.Incr(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	// SET NX answers nil when the window is already open.
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	if err := incr.Err(); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}
