package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/visa-track/visa_portal/internal/casefile"
)

const maxResponseBytes = 1 << 20

// Client defines the RPC contract of the sheet web app.
type Client interface {
	Step1(ctx context.Context, creds casefile.Credentials) (casefile.PendingIdentity, error)
	Step2(ctx context.Context, identity casefile.PendingIdentity) (string, casefile.Record, error)
	CheckSession(ctx context.Context, token string) (casefile.Record, error)
	Logout(ctx context.Context, token string) error
	UpdateDocument(ctx context.Context, token string, field casefile.DocumentField, link string) (casefile.Record, error)
}

// Observer receives one call per RPC with its outcome ("ok", "rejected",
// "malformed" or "transport").
type Observer func(action, outcome string, elapsed time.Duration)

// Option customises a client.
type Option func(*clientImpl)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientImpl) { c.http = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientImpl) { c.logger = l }
}

// WithObserver registers a per-call observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(c *clientImpl) { c.observe = o }
}

type clientImpl struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	observe  Observer
}

// NewClient creates a client for the web app deployed at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(base, "http") {
		return nil, fmt.Errorf("backend url must start with http, got %q", baseURL)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	c := &clientImpl{
		endpoint: base + "/",
		http:     &http.Client{Timeout: timeout},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *clientImpl) Step1(ctx context.Context, creds casefile.Credentials) (casefile.PendingIdentity, error) {
	var resp step1Response
	err := c.call(ctx, ActionStep1, nil, url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
		"ceu":      {creds.CEU},
	}, &resp, &resp.envelope, nil)
	if err != nil {
		return casefile.PendingIdentity{}, err
	}
	var payload identityPayload
	if resp.Step2 != nil {
		payload = *resp.Step2
	}
	return payload.toIdentity(creds.CEU), nil
}

func (c *clientImpl) Step2(ctx context.Context, identity casefile.PendingIdentity) (string, casefile.Record, error) {
	var resp step2Response
	err := c.call(ctx, ActionStep2, nil, url.Values{
		"ceu":                   {identity.CEU},
		"name":                  {identity.Name},
		"lastname":              {identity.LastName},
		"birthYear":             {identity.BirthYear},
		"passportNumber":        {identity.PassportNumber},
		"nationalID":            {identity.NationalID},
		"applicationFormNumber": {identity.ApplicationFormNumber},
		"reference":             {identity.Reference},
		"applicationType":       {identity.ApplicationType},
		"row":                   {identity.RowID},
	}, &resp, &resp.envelope, func() error {
		if resp.SessionToken == "" || resp.User == nil {
			return errors.New("missing sessionToken or user")
		}
		return nil
	})
	if err != nil {
		return "", casefile.Record{}, err
	}
	return string(resp.SessionToken), RecordFromUser(resp.User), nil
}

func (c *clientImpl) CheckSession(ctx context.Context, token string) (casefile.Record, error) {
	var resp userResponse
	err := c.call(ctx, ActionCheckSession, url.Values{"token": {token}}, nil, &resp, &resp.envelope, resp.requireUser)
	if err != nil {
		return casefile.Record{}, err
	}
	return RecordFromUser(resp.User), nil
}

func (c *clientImpl) Logout(ctx context.Context, token string) error {
	var resp envelope
	return c.call(ctx, ActionLogout, nil, url.Values{"sessionToken": {token}}, &resp, &resp, nil)
}

func (c *clientImpl) UpdateDocument(ctx context.Context, token string, field casefile.DocumentField, link string) (casefile.Record, error) {
	var resp userResponse
	err := c.call(ctx, ActionUpdateDocument, nil, url.Values{
		"sessionToken": {token},
		"field":        {string(field)},
		"link":         {link},
	}, &resp, &resp.envelope, resp.requireUser)
	if err != nil {
		return casefile.Record{}, err
	}
	return RecordFromUser(resp.User), nil
}

// call performs one exchange. A nil form issues a GET with query; otherwise
// a form-encoded POST. out is decoded from the body and env must point at
// the envelope embedded in out. check, when set, verifies the payload of an
// ok response.
func (c *clientImpl) call(ctx context.Context, action string, query, form url.Values, out any, env *envelope, check func() error) error {
	start := time.Now()
	u := c.endpoint + "?action=" + url.QueryEscape(action)
	if len(query) > 0 {
		u += "&" + query.Encode()
	}

	var (
		req *http.Request
		err error
	)
	if form == nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return c.fail(action, "transport", &Error{Action: action, Transport: true, Err: fmt.Errorf("error creating request: %w", err)}, start)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error embeds the request URL, which may carry the session token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return c.fail(action, "transport", &Error{Action: action, Transport: true, Err: err}, start)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.fail(action, "transport", &Error{Action: action, Transport: true, Err: fmt.Errorf("error reading response: %w", err)}, start)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(action, "transport", &Error{Action: action, Transport: true, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}, start)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(action, "malformed", &Error{Action: action, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}, start)
	}
	if env.OK == nil {
		return c.fail(action, "malformed", &Error{Action: action, Err: fmt.Errorf("%w: missing ok flag", ErrMalformed)}, start)
	}
	if !*env.OK {
		return c.fail(action, "rejected", &Error{Action: action, Message: strings.TrimSpace(string(env.Error)), Err: ErrRejected}, start)
	}

	if check != nil {
		if err := check(); err != nil {
			return c.fail(action, "malformed", &Error{Action: action, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}, start)
		}
	}

	c.done(action, "ok", start)
	return nil
}

func (c *clientImpl) fail(action, outcome string, err *Error, start time.Time) error {
	c.done(action, outcome, start)
	level := slog.LevelWarn
	if errors.Is(err, ErrRejected) {
		level = slog.LevelInfo
	}
	c.logger.Log(context.Background(), level, "backend call failed",
		slog.String("action", action),
		slog.String("outcome", outcome),
		slog.Any("error", err),
	)
	return err
}

func (c *clientImpl) done(action, outcome string, start time.Time) {
	elapsed := time.Since(start)
	if c.observe != nil {
		c.observe(action, outcome, elapsed)
	}
	if outcome == "ok" {
		c.logger.Debug("backend call", slog.String("action", action), slog.Duration("duration", elapsed))
	}
}
