// Command sheetstub serves an in-memory applicant sheet that speaks the
// backend action protocol, for local runs of the portal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/visa-track/visa_portal/internal/logging"
	"github.com/visa-track/visa_portal/internal/sheetstub"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(getEnv("LOG_LEVEL", "info"))

	sheet := sheetstub.New(logger)
	if path := os.Getenv("SHEETSTUB_FIXTURES"); path != "" {
		n, err := sheet.LoadFixturesFile(path)
		if err != nil {
			logger.Error("load fixtures", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("fixtures loaded", "path", path, "applicants", n)
	}

	app := sheetstub.NewHandler(sheet, logger).App()
	addr := fmt.Sprintf(":%s", getEnv("SHEETSTUB_PORT", "8090"))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sheet stub listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
