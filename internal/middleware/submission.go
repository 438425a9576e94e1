package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	submissionField  = "submission_id"
	submissionPrefix = "portal:submission:v1:"
	inProgressMarker = "__in_progress__"
	doneMarker       = "__done__"
)

// SubmissionGuard drops repeated posts of the same rendered form. Every page
// render tags its forms with a fresh submission_id; the first post reserves
// it in Redis and later posts with the same id are redirected to onDuplicate
// without reaching the handler.
func SubmissionGuard(cache *redis.Client, ttl time.Duration, onDuplicate string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || c.Method() != fiber.MethodPost {
			return c.Next()
		}

		sid := strings.TrimSpace(c.FormValue(submissionField))
		if sid == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing submission id")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		cacheKey := submissionPrefix + VisitorID(c) + ":" + sid
		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("submission reservation failed", slog.String("submission_id", sid), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "submission store failure")
		}
		if !reserved {
			logger.Info("duplicate submission dropped", slog.String("submission_id", sid), slog.String("path", c.Path()))
			return c.Redirect(onDuplicate, fiber.StatusSeeOther)
		}

		if err := c.Next(); err != nil {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			cache.Del(cleanupCtx, cacheKey) // best effort cleanup
			return err
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, doneMarker, ttl).Err(); err != nil {
			logger.Warn("failed to mark submission done", slog.String("submission_id", sid), slog.Any("error", err))
		}
		return nil
	}
}
