package middleware

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig bounds requests per client IP
type RateLimitConfig struct {
	PerSecond int
	PerDay    int
}

// LoadRateLimitConfigFromEnv loads rate limits from environment variables
func LoadRateLimitConfigFromEnv() RateLimitConfig {
	perSecond, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_SECOND", "10"))
	if err != nil {
		perSecond = 10
	}
	perDay, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_DAY", "10000"))
	if err != nil {
		perDay = 10000
	}
	return RateLimitConfig{PerSecond: perSecond, PerDay: perDay}
}

// RateLimitMiddleware limits requests per client IP per second and per day.
// Route computation fans out to the external path finder, so this protects it too.
// Redis errors let the request through.
func RateLimitMiddleware(rdb *redis.Client, limits RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()
		now := time.Now()
		clientID := c.IP()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", clientID, now.Unix())
		keyDay := fmt.Sprintf("rl:ip:%s:day:%s", clientID, now.Format("2006-01-02"))

		// Check per-second rate limit
		if limits.PerSecond > 0 {
			countSecond, err := rdb.Incr(ctx, keySecond).Result()
			if err != nil {
				log.Printf("rate limit check failed: %v", err)
				return c.Next()
			}
			rdb.Expire(ctx, keySecond, 2*time.Second)

			if countSecond > int64(limits.PerSecond) {
				c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
				c.Set("X-RateLimit-Remaining-Second", "0")
				c.Set("X-RateLimit-Reset-Second", strconv.FormatInt(now.Unix()+1, 10))
				c.Set("Retry-After", "1")

				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests per second",
					"limit_type":  "per_second",
					"limit":       limits.PerSecond,
					"retry_after": 1,
				})
			}
		}

		// Check per-day rate limit
		if limits.PerDay > 0 {
			countDay, err := rdb.Incr(ctx, keyDay).Result()
			if err != nil {
				log.Printf("rate limit check failed: %v", err)
				return c.Next()
			}
			rdb.Expire(ctx, keyDay, 25*time.Hour) // 25 hours to handle timezone differences

			if countDay > int64(limits.PerDay) {
				tomorrow := now.AddDate(0, 0, 1)
				midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
				retryAfter := int64(midnight.Sub(now).Seconds())

				c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))
				c.Set("X-RateLimit-Remaining-Day", "0")
				c.Set("X-RateLimit-Reset-Day", strconv.FormatInt(midnight.Unix(), 10))
				c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":       "daily_quota_exceeded",
					"message":     "Daily quota exceeded",
					"limit_type":  "per_day",
					"limit":       limits.PerDay,
					"used":        countDay,
					"retry_after": retryAfter,
					"reset_at":    midnight.Format(time.RFC3339),
				})
			}

			c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(limits.PerDay)-countDay, 10))
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))

		return c.Next()
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
