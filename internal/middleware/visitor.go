package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/visa-track/visa_portal/internal/visitor"
)

const visitorLocal = "visitor_id"

// Visitor identifies the browser through the signed visitor cookie. A
// missing, expired or forged cookie is replaced by a new visitor id.
func Visitor(signer *visitor.Signer, secure bool, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := signer.Parse(c.Cookies(visitor.CookieName))
		if err != nil {
			id = visitor.NewID()
			token, err := signer.Issue(id)
			if err != nil {
				logger.Error("issue visitor cookie", slog.Any("error", err))
				return fiber.NewError(fiber.StatusInternalServerError, "could not start a session")
			}
			c.Cookie(&fiber.Cookie{
				Name:     visitor.CookieName,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(signer.TTL()),
				HTTPOnly: true,
				Secure:   secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(visitorLocal, id)
		return c.Next()
	}
}

// VisitorID returns the id set by Visitor, or "" outside it.
func VisitorID(c *fiber.Ctx) string {
	id, _ := c.Locals(visitorLocal).(string)
	return id
}
