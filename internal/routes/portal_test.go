package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/visa-track/visa_portal/internal/audit"
	"github.com/visa-track/visa_portal/internal/backend"
	"github.com/visa-track/visa_portal/internal/config"
	"github.com/visa-track/visa_portal/internal/controller"
	"github.com/visa-track/visa_portal/internal/logging"
	"github.com/visa-track/visa_portal/internal/metrics"
	"github.com/visa-track/visa_portal/internal/sheetstub"
	"github.com/visa-track/visa_portal/internal/store"
	"github.com/visa-track/visa_portal/internal/visitor"
)

const applicantsYAML = `
applicants:
  - username: ana
    password: s3cret
    ceu: CEU-1001
    name: Ana
    lastname: Diaz
    birthYear: "1990"
    nationalID: N-77
    applicationFormNumber: F-1
    reference: R-1
    applicationType: work
    paymentStatus: pending
`

type portalEnv struct {
	app      *fiber.App
	sheet    *sheetstub.Sheet
	registry *controller.Registry
	recorder audit.Recorder
	uploads  string
	cookie   *http.Cookie
}

func newPortalEnv(t *testing.T) *portalEnv {
	t.Helper()
	logger := logging.Discard()

	sheet := sheetstub.New(logger)
	if _, err := sheet.LoadFixtures([]byte(applicantsYAML)); err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	stub := httptest.NewServer(adaptor.FiberApp(sheetstub.NewHandler(sheet, logger).App()))
	t.Cleanup(stub.Close)

	client, err := backend.NewClient(stub.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	recorder := audit.NewMemoryRecorder()
	registry := controller.NewRegistry(controller.Deps{
		Backend:    client,
		Store:      store.NewMemoryStore(time.Hour),
		Audit:      recorder,
		Logger:     logger,
		Inactivity: time.Minute,
		RPCTimeout: 5 * time.Second,
	}, time.Hour)
	t.Cleanup(registry.Close)

	cfg := config.Config{
		AppName:          "Visa Portal",
		AppEnv:           "test",
		BackendURL:       stub.URL,
		CookieSecret:     "test-cookie-secret-0123456789",
		PublicURL:        "http://portal.test",
		UploadDir:        t.TempDir(),
		Inactivity:       time.Minute,
		SessionTTL:       time.Hour,
		VisitorTTL:       time.Hour,
		RPCTimeout:       5 * time.Second,
		SubmissionTTL:    time.Minute,
		LoginAttemptsMin: 5,
	}
	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Logger: logger, Registry: registry, Metrics: metrics.New()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return &portalEnv{app: app, sheet: sheet, registry: registry, recorder: recorder, uploads: cfg.UploadDir}
}

// do sends req with the visitor cookie and keeps any cookie the portal sets.
func (e *portalEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == visitor.CookieName {
			e.cookie = ck
		}
	}
	return resp
}

func (e *portalEnv) page(t *testing.T) string {
	t.Helper()
	resp := e.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func (e *portalEnv) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := e.do(t, req)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("POST %s status = %d, want 303", path, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("POST %s redirected to %q", path, loc)
	}
	return resp
}

func (e *portalEnv) signIn(t *testing.T) {
	t.Helper()
	e.page(t)
	e.post(t, "/login/step1", url.Values{"username": {"ana"}, "password": {"s3cret"}, "ceu": {"CEU-1001"}})
	if body := e.page(t); !strings.Contains(body, `id="step2"`) {
		t.Fatalf("expected identity form after step one")
	}
	e.post(t, "/login/step2", url.Values{
		"name":                  {"Ana"},
		"lastname":              {"Diaz"},
		"birthYear":             {"1990"},
		"nationalID":            {"N-77"},
		"applicationFormNumber": {"F-1"},
		"reference":             {"R-1"},
		"applicationType":       {"work"},
	})
}

func TestPortalLoginShowsDashboard(t *testing.T) {
	env := newPortalEnv(t)

	if body := env.page(t); !strings.Contains(body, `id="step1"`) {
		t.Fatalf("first visit should show the credentials form")
	}
	if env.cookie == nil {
		t.Fatalf("visitor cookie was not issued")
	}

	env.signIn(t)
	body := env.page(t)
	if !strings.Contains(body, `id="dashboard"`) {
		t.Fatalf("expected dashboard after step two")
	}
	if !strings.Contains(body, "Welcome, Ana Diaz") {
		t.Fatalf("welcome line missing")
	}
	if !strings.Contains(body, "CEU-1001") {
		t.Fatalf("CEU missing from dashboard")
	}
	if env.sheet.Sessions() != 1 {
		t.Fatalf("sessions = %d, want 1", env.sheet.Sessions())
	}
}

func TestPortalRejectsWrongPassword(t *testing.T) {
	env := newPortalEnv(t)
	env.page(t)
	env.post(t, "/login/step1", url.Values{"username": {"ana"}, "password": {"nope"}, "ceu": {"CEU-1001"}})

	body := env.page(t)
	if !strings.Contains(body, `id="step1"`) || !strings.Contains(body, `id="error"`) {
		t.Fatalf("expected credentials form with an error")
	}
}

func TestPortalActivityRequiresSession(t *testing.T) {
	env := newPortalEnv(t)

	resp := env.do(t, httptest.NewRequest(http.MethodPost, "/activity", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous activity status = %d, want 401", resp.StatusCode)
	}

	env.signIn(t)
	resp = env.do(t, httptest.NewRequest(http.MethodPost, "/activity", nil))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("signed-in activity status = %d, want 204", resp.StatusCode)
	}
}

func TestPortalLogoutReturnsToStepOne(t *testing.T) {
	env := newPortalEnv(t)
	env.signIn(t)

	env.post(t, "/logout", nil)
	if body := env.page(t); !strings.Contains(body, `id="step1"`) {
		t.Fatalf("expected credentials form after logout")
	}
	if env.sheet.Sessions() != 0 {
		t.Fatalf("sheet still holds %d sessions", env.sheet.Sessions())
	}
}

func (e *portalEnv) upload(t *testing.T, field, submissionID string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("submission_id", submissionID)
	fw, err := mw.CreateFormFile("file", "receipt.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 receipt"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents/"+field, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := e.do(t, req)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
}

func (e *portalEnv) storedFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploads)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	return len(entries)
}

func TestPortalUploadRecordsLink(t *testing.T) {
	env := newPortalEnv(t)
	env.signIn(t)

	env.upload(t, "uploadPaymentReceipt", "sub-1")

	body := env.page(t)
	if !strings.Contains(body, "http://portal.test/files/") {
		t.Fatalf("uploaded link not shown on dashboard")
	}
}

func TestPortalUploadIntoFilledSlotKeepsNoFile(t *testing.T) {
	env := newPortalEnv(t)
	env.signIn(t)

	env.upload(t, "uploadPaymentReceipt", "sub-1")
	if n := env.storedFiles(t); n != 1 {
		t.Fatalf("stored files = %d, want 1", n)
	}

	env.upload(t, "uploadPaymentReceipt", "sub-2")
	if n := env.storedFiles(t); n != 1 {
		t.Fatalf("second upload kept a file, stored files = %d", n)
	}
	if body := env.page(t); !strings.Contains(body, "already been uploaded") {
		t.Fatalf("expected already-uploaded error on the dashboard")
	}
}

func TestPortalDownloadPaidLetter(t *testing.T) {
	env := newPortalEnv(t)
	const letter = "https://letters.example/CEU-1001.pdf"
	if !env.sheet.SetPaymentStatus("CEU-1001", "paid", letter) {
		t.Fatalf("applicant row not found")
	}
	env.signIn(t)

	resp := env.do(t, httptest.NewRequest(http.MethodPost, "/download", nil))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != letter {
		t.Fatalf("download redirected to %q, want %q", loc, letter)
	}
}

func TestPortalDownloadUnpaidShowsNotice(t *testing.T) {
	env := newPortalEnv(t)
	env.signIn(t)

	env.post(t, "/download", nil)
	if body := env.page(t); !strings.Contains(body, "pay your visa application fee") {
		t.Fatalf("expected payment notice")
	}
}

func TestPortalUnknownDocumentField(t *testing.T) {
	env := newPortalEnv(t)
	env.signIn(t)

	resp := env.do(t, httptest.NewRequest(http.MethodPost, "/documents/uploadNothing", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	env := newPortalEnv(t)
	env.signIn(t)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	var out struct {
		Status   map[string]string `json:"status"`
		Visitors int               `json:"visitors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status["postgres"] != "disabled" || out.Status["redis"] != "disabled" {
		t.Fatalf("unexpected status %v", out.Status)
	}
	if out.Visitors != 1 {
		t.Fatalf("visitors = %d, want 1", out.Visitors)
	}
}

func TestSetupRequiresStoresOutsideDev(t *testing.T) {
	err := Setup(fiber.New(), Deps{Cfg: config.Config{AppEnv: "production"}})
	if err == nil {
		t.Fatalf("expected error without database in production")
	}
}
