package sheetstub

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/visa-track/visa_portal/internal/backend"
	"github.com/visa-track/visa_portal/internal/casefile"
)

// Handler serves the action-based contract on a single path.
type Handler struct {
	sheet  *Sheet
	logger *slog.Logger
}

// NewHandler constructs the stub HTTP handler.
func NewHandler(sheet *Sheet, logger *slog.Logger) *Handler {
	return &Handler{sheet: sheet, logger: logger}
}

// App returns a Fiber app answering on "/".
func (h *Handler) App() *fiber.App {
	app := fiber.New(fiber.Config{AppName: "sheetstub", DisableStartupMessage: true})
	app.All("/", h.Dispatch)
	return app
}

// Dispatch routes on the action query parameter. Failures are reported the
// way the sheet does: HTTP 200 with ok=false.
func (h *Handler) Dispatch(c *fiber.Ctx) error {
	action := c.Query("action")
	switch action {
	case backend.ActionStep1:
		return h.step1(c)
	case backend.ActionStep2:
		return h.step2(c)
	case backend.ActionCheckSession:
		return h.checkSession(c)
	case backend.ActionLogout:
		return h.logout(c)
	case backend.ActionUpdateDocument:
		return h.updateDocument(c)
	default:
		return reject(c, "Unknown action")
	}
}

func (h *Handler) step1(c *fiber.Ctx) error {
	if c.Method() != http.MethodPost {
		return c.SendStatus(http.StatusMethodNotAllowed)
	}
	id, ok := h.sheet.verifyCredentials(c.FormValue("username"), c.FormValue("password"), c.FormValue("ceu"))
	if !ok {
		h.logger.Info("step1 rejected", "ceu", c.FormValue("ceu"))
		return reject(c, "Invalid username, password or CEU number")
	}
	return c.JSON(fiber.Map{
		"ok": true,
		"step2": fiber.Map{
			"name":                  id.Name,
			"lastname":              id.LastName,
			"birthYear":             id.BirthYear,
			"passportNumber":        id.PassportNumber,
			"nationalID":            id.NationalID,
			"applicationFormNumber": id.ApplicationFormNumber,
			"reference":             id.Reference,
			"applicationType":       id.ApplicationType,
			"row":                   id.RowID,
		},
	})
}

func (h *Handler) step2(c *fiber.Ctx) error {
	if c.Method() != http.MethodPost {
		return c.SendStatus(http.StatusMethodNotAllowed)
	}
	in := casefile.PendingIdentity{
		CEU:                   c.FormValue("ceu"),
		Name:                  c.FormValue("name"),
		LastName:              c.FormValue("lastname"),
		BirthYear:             c.FormValue("birthYear"),
		PassportNumber:        c.FormValue("passportNumber"),
		NationalID:            c.FormValue("nationalID"),
		ApplicationFormNumber: c.FormValue("applicationFormNumber"),
		Reference:             c.FormValue("reference"),
		ApplicationType:       c.FormValue("applicationType"),
		RowID:                 c.FormValue("row"),
	}.Normalize()
	token, rec, ok := h.sheet.verifyIdentity(in)
	if !ok {
		h.logger.Info("step2 rejected", "ceu", in.CEU)
		return reject(c, "Identity details do not match our records")
	}
	return c.JSON(fiber.Map{"ok": true, "sessionToken": token, "user": backend.UserFromRecord(rec)})
}

func (h *Handler) checkSession(c *fiber.Ctx) error {
	rec, err := h.sheet.record(c.Query("token"))
	if err != nil {
		return reject(c, "Session expired")
	}
	return c.JSON(fiber.Map{"ok": true, "user": backend.UserFromRecord(rec)})
}

func (h *Handler) logout(c *fiber.Ctx) error {
	h.sheet.revoke(c.FormValue("sessionToken"))
	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handler) updateDocument(c *fiber.Ctx) error {
	if c.Method() != http.MethodPost {
		return c.SendStatus(http.StatusMethodNotAllowed)
	}
	field, ok := casefile.ParseField(c.FormValue("field"))
	if !ok {
		return reject(c, "Unknown document field")
	}
	link := c.FormValue("link")
	if link == "" {
		return reject(c, "Missing link")
	}
	rec, err := h.sheet.setDocument(c.FormValue("sessionToken"), field, link)
	if err != nil {
		return reject(c, "Session expired")
	}
	return c.JSON(fiber.Map{"ok": true, "user": backend.UserFromRecord(rec)})
}

func reject(c *fiber.Ctx, msg string) error {
	return c.JSON(fiber.Map{"ok": false, "error": msg})
}
