package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const loginRateLimitPrefix = "rl:login:"

// LoginRateLimit limits step-one attempts per username or, when the form
// has none, per client IP. Without Redis it is a no-op.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := strings.ToLower(strings.TrimSpace(c.FormValue("username")))
		if subject == "" {
			subject = c.IP()
		}
		key := loginRateLimitPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "Too many sign-in attempts. Please wait a minute and try again.")
		}
		return c.Next()
	}
}
