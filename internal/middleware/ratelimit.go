package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ejanapp/api/pkg/response"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a rate limiting middleware. Generation endpoints are the
// expensive ones; status polling gets a much higher budget.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := GetUserID(c)
		if subject == "" {
			subject = c.IP()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, subject)
		ctx := context.Background()

		// Increment counter
		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// If Redis fails, allow the request
			return c.Next()
		}

		// Set expiration on first request
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// StylesLimit bounds style generation (three image calls per request).
func (rl *RateLimiter) StylesLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("styles", maxPerHour, time.Hour)
}

// TutorialsLimit bounds tutorial generation (the full pipeline).
func (rl *RateLimiter) TutorialsLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("tutorials", maxPerHour, time.Hour)
}

// UploadsLimit bounds photo uploads.
func (rl *RateLimiter) UploadsLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("uploads", maxPerHour, time.Hour)
}

// StatusLimit bounds status polling per minute.
func (rl *RateLimiter) StatusLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("status", maxPerMin, time.Minute)
}
