package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "disabled"
		redisStatus := "disabled"
		backendStatus := "unchecked"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if d.BackendProbe != nil {
			backendStatus = "ok"
			if err := d.BackendProbe(ctx); err != nil {
				backendStatus = err.Error()
			}
		}

		status := http.StatusOK
		for _, s := range []string{dbStatus, redisStatus, backendStatus} {
			if s != "ok" && s != "disabled" && s != "unchecked" {
				status = http.StatusServiceUnavailable
			}
		}
		visitors := 0
		if d.Registry != nil {
			visitors = d.Registry.Len()
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "backend": backendStatus},
			"visitors":  visitors,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
