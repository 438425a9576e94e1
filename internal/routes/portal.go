package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/visa-track/visa_portal/internal/casefile"
	"github.com/visa-track/visa_portal/internal/config"
	"github.com/visa-track/visa_portal/internal/controller"
	"github.com/visa-track/visa_portal/internal/documents"
	"github.com/visa-track/visa_portal/internal/flow"
	"github.com/visa-track/visa_portal/internal/middleware"
	"github.com/visa-track/visa_portal/internal/render"
)

const (
	msgFileTooLarge = "The file is too large. The limit is 10 MB."
	msgFileType     = "This file type is not accepted. Use PDF, image or Word files."
	msgFileStore    = "The file could not be stored. Please try again."
)

// registerPortalRoutes wires the page and its form posts.
func registerPortalRoutes(r fiber.Router, h *portalHandler, rateLimiter, submissionGuard fiber.Handler) {
	r.Get("/", h.Index)
	r.Post("/login/step1", rateLimiter, h.Step1)
	r.Post("/login/step2", h.Step2)
	r.Post("/login/back", h.Back)
	r.Post("/logout", h.Logout)
	r.Post("/activity", h.Activity)
	r.Post("/documents/:field", submissionGuard, h.Upload)
	r.Post("/checklist", h.Checklist)
	r.Post("/download", h.Download)
}

type portalHandler struct {
	registry *controller.Registry
	renderer *render.Renderer
	uploader *documents.Uploader
	cfg      config.Config
	logger   *slog.Logger
}

func (h *portalHandler) controller(c *fiber.Ctx) *controller.Controller {
	return h.registry.Get(c.UserContext(), middleware.VisitorID(c))
}

// dispatch counts the request as activity and then applies ev.
func (h *portalHandler) dispatch(c *fiber.Ctx, ev flow.Event) controller.Result {
	ctl := h.controller(c)
	ctl.Dispatch(c.UserContext(), flow.Activity{})
	return ctl.Dispatch(c.UserContext(), ev)
}

func (h *portalHandler) backToPage(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

// Index renders the current screen.
func (h *portalHandler) Index(c *fiber.Ctx) error {
	res := h.controller(c).Dispatch(c.UserContext(), flow.Activity{})
	c.Type("html", "utf-8")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return h.renderer.Render(c, render.Page{
		View:         render.Build(res.State),
		AppName:      h.cfg.AppName,
		SubmissionID: uuid.NewString(),
		IdleSeconds:  int(h.cfg.Inactivity.Seconds()),
	})
}

// Step1 submits the credentials form.
func (h *portalHandler) Step1(c *fiber.Ctx) error {
	h.dispatch(c, flow.SubmitStep1{Credentials: casefile.Credentials{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		CEU:      c.FormValue("ceu"),
	}})
	return h.backToPage(c)
}

// Step2 submits the identity form. CEU and row come from the pending state.
func (h *portalHandler) Step2(c *fiber.Ctx) error {
	h.dispatch(c, flow.ConfirmStep2{Identity: casefile.PendingIdentity{
		Name:                  c.FormValue("name"),
		LastName:              c.FormValue("lastname"),
		BirthYear:             c.FormValue("birthYear"),
		PassportNumber:        c.FormValue("passportNumber"),
		NationalID:            c.FormValue("nationalID"),
		ApplicationFormNumber: c.FormValue("applicationFormNumber"),
		Reference:             c.FormValue("reference"),
		ApplicationType:       c.FormValue("applicationType"),
	}})
	return h.backToPage(c)
}

// Back returns from step two to step one.
func (h *portalHandler) Back(c *fiber.Ctx) error {
	h.dispatch(c, flow.Back{})
	return h.backToPage(c)
}

// Logout signs the visitor out.
func (h *portalHandler) Logout(c *fiber.Ctx) error {
	h.dispatch(c, flow.Logout{})
	return h.backToPage(c)
}

// Activity is the page heartbeat. It answers 401 once the session is gone
// so the page can reload itself.
func (h *portalHandler) Activity(c *fiber.Ctx) error {
	res := h.controller(c).Dispatch(c.UserContext(), flow.Activity{})
	if !res.State.Authenticated() {
		return c.SendStatus(http.StatusUnauthorized)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Upload stores the chosen file and records its link on the case.
func (h *portalHandler) Upload(c *fiber.Ctx) error {
	field, ok := casefile.ParseField(c.Params("field"))
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown document field")
	}
	ctl := h.controller(c)
	st := ctl.State()
	if !st.Authenticated() {
		return h.backToPage(c)
	}

	// A filled slot is refused by the flow; the file is not kept.
	ev := flow.Upload{Field: field}
	fh, err := c.FormFile("file")
	if err == nil && !st.Record.Uploaded(field) {
		link, err := h.uploader.Save(fh)
		switch {
		case err == nil:
			ev.Link = link
		case errors.Is(err, documents.ErrEmpty):
			// Reported as "no file chosen".
		case errors.Is(err, documents.ErrTooLarge):
			ev.Problem = msgFileTooLarge
		case errors.Is(err, documents.ErrType):
			ev.Problem = msgFileType
		default:
			h.logger.Error("store upload", "field", string(field), "error", err)
			ev.Problem = msgFileStore
		}
	}
	h.dispatch(c, ev)
	return h.backToPage(c)
}

// Checklist shows the final document summary.
func (h *portalHandler) Checklist(c *fiber.Ctx) error {
	h.dispatch(c, flow.ShowChecklist{})
	return h.backToPage(c)
}

// Download sends the visitor to the visa letter when it is available.
func (h *portalHandler) Download(c *fiber.Ctx) error {
	res := h.dispatch(c, flow.Download{})
	if res.Letter != "" {
		return c.Redirect(res.Letter, fiber.StatusSeeOther)
	}
	return h.backToPage(c)
}
