package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/visa-track/visa_portal/internal/audit"
	"github.com/visa-track/visa_portal/internal/backend"
	"github.com/visa-track/visa_portal/internal/config"
	"github.com/visa-track/visa_portal/internal/controller"
	"github.com/visa-track/visa_portal/internal/documents"
	"github.com/visa-track/visa_portal/internal/flow"
	"github.com/visa-track/visa_portal/internal/metrics"
	"github.com/visa-track/visa_portal/internal/notification"
	"github.com/visa-track/visa_portal/internal/routes"
	"github.com/visa-track/visa_portal/internal/store"
)

const sweepInterval = time.Minute

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	db       *pgxpool.Pool
	cache    *redis.Client
	registry *controller.Registry
	stop     context.CancelFunc
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	m := metrics.New()

	client, err := backend.NewClient(cfg.BackendURL, cfg.RPCTimeout,
		backend.WithLogger(logger),
		backend.WithObserver(m.ObserveRPC),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	var sessions store.Store
	if cache != nil {
		sessions = store.NewRedisStore(cache, cfg.SessionTTL)
	} else {
		sessions = store.NewMemoryStore(cfg.SessionTTL)
	}

	var recorder audit.Recorder
	if db != nil {
		pg := audit.NewPostgresRecorder(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		recorder = pg
	} else {
		recorder = audit.NewMemoryRecorder()
	}

	registry := controller.NewRegistry(controller.Deps{
		Backend:    client,
		Store:      sessions,
		Notifier:   notification.NewLoggerNotifier(logger),
		Audit:      recorder,
		Logger:     logger,
		Inactivity: cfg.Inactivity,
		RPCTimeout: cfg.RPCTimeout,
		OnTransition: func(from, to flow.Stage) {
			m.ObserveTransition(from.String(), to.String())
		},
	}, cfg.VisitorTTL)
	registry.OnSize(m.SetVisitors)

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             documents.MaxFileSize + 1<<20,
		DisableStartupMessage: true,
	})

	if err := routes.Setup(app, routes.Deps{
		Cfg:          cfg,
		DB:           db,
		Cache:        cache,
		Logger:       logger,
		Registry:     registry,
		Metrics:      m,
		BackendProbe: probe(cfg.BackendURL),
	}); err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())
	go registry.Run(ctx, sweepInterval)

	return &Server{app: app, cfg: cfg, db: db, cache: cache, registry: registry, stop: stop}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server and the inactivity timers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	err := s.app.ShutdownWithContext(ctx)
	s.registry.Close()
	return err
}

// probe reports whether the backend answers HTTP at all. The answer itself
// is not inspected; an unknown action still proves reachability.
func probe(baseURL string) func(context.Context) error {
	hc := &http.Client{Timeout: 2 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?action=ping", nil)
		if err != nil {
			return err
		}
		resp, err := hc.Do(req)
		if err != nil {
			return fmt.Errorf("backend unreachable")
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("backend status %d", resp.StatusCode)
		}
		return nil
	}
}
