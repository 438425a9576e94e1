package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/visa-track/visa_portal/internal/logging"
	"github.com/visa-track/visa_portal/internal/visitor"
)

func visitorApp(t *testing.T) *fiber.App {
	t.Helper()
	signer, err := visitor.NewSigner("test-secret-of-sufficient-size", time.Hour)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Visitor(signer, false, logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(VisitorID(c))
	})
	return app
}

func visitorCookie(resp *http.Response) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == visitor.CookieName {
			return ck
		}
	}
	return nil
}

func TestVisitorIssuesAndReusesCookie(t *testing.T) {
	app := visitorApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	first, _ := io.ReadAll(resp.Body)
	ck := visitorCookie(resp)
	if ck == nil || !ck.HttpOnly {
		t.Fatal("expected an http-only visitor cookie")
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: visitor.CookieName, Value: ck.Value})
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	second, _ := io.ReadAll(resp.Body)
	if string(first) != string(second) {
		t.Fatalf("expected same visitor, got %s and %s", first, second)
	}
	if visitorCookie(resp) != nil {
		t.Fatal("valid cookie should not be reissued")
	}
}

func TestVisitorReplacesForgedCookie(t *testing.T) {
	app := visitorApp(t)
	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: visitor.CookieName, Value: "forged.token.value"})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if visitorCookie(resp) == nil {
		t.Fatal("forged cookie should be replaced")
	}
}

func TestAuditSkipsQuietPaths(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(Audit(slog.New(slog.NewJSONHandler(&buf, nil)), "/healthz"))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil)); err != nil {
		t.Fatalf("healthz: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("quiet path was logged: %s", buf.String())
	}
	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil)); err != nil {
		t.Fatalf("root: %v", err)
	}
	if !strings.Contains(buf.String(), `"path":"/"`) {
		t.Fatalf("expected access log line, got %s", buf.String())
	}
}
