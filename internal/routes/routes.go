package routes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/visa-track/visa_portal/internal/config"
	"github.com/visa-track/visa_portal/internal/controller"
	"github.com/visa-track/visa_portal/internal/documents"
	"github.com/visa-track/visa_portal/internal/metrics"
	"github.com/visa-track/visa_portal/internal/middleware"
	"github.com/visa-track/visa_portal/internal/render"
	"github.com/visa-track/visa_portal/internal/visitor"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *controller.Registry
	Metrics  *metrics.Metrics
	// BackendProbe reports whether the backend answers at all.
	BackendProbe func(ctx context.Context) error
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		return fmt.Errorf("controller registry is required")
	}

	signer, err := visitor.NewSigner(d.Cfg.CookieSecret, d.Cfg.SessionTTL)
	if err != nil {
		return err
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		return err
	}
	uploader, err := documents.NewUploader(d.Cfg.UploadDir, d.Cfg.PublicURL)
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if isDev(d.Cfg.AppEnv) {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	// Health and metrics
	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}
	app.Static("/files", uploader.Dir(), fiber.Static{Browse: false})

	// Portal
	portal := app.Group("", middleware.Visitor(signer, d.Cfg.SecureCookies(), d.Logger), middleware.Audit(d.Logger, "/activity"))
	h := &portalHandler{
		registry: d.Registry,
		renderer: renderer,
		uploader: uploader,
		cfg:      d.Cfg,
		logger:   d.Logger,
	}
	registerPortalRoutes(portal, h,
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsMin),
		middleware.SubmissionGuard(d.Cache, d.Cfg.SubmissionTTL, "/", d.Logger),
	)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
