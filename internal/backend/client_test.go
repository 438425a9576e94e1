package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visa-track/visa_portal/internal/casefile"
)

type recordedCall struct {
	Method string
	Action string
	Query  url.Values
	Form   url.Values
}

// fakeSheet answers every action with a canned body and records requests.
type fakeSheet struct {
	mu     sync.Mutex
	calls  []recordedCall
	bodies map[string]string
	status int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	action := r.URL.Query().Get("action")
	form := url.Values{}
	if r.Method == http.MethodPost {
		form = r.PostForm
	}
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: r.Method, Action: action, Query: r.URL.Query(), Form: form})
	body := f.bodies[action]
	status := f.status
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, sheet *fakeSheet, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(sheet)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"///", 2*time.Second, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsNonHTTP(t *testing.T) {
	_, err := NewClient("", time.Second)
	require.Error(t, err)
	_, err = NewClient("ftp://sheet", time.Second)
	require.Error(t, err)
}

func TestStep1ParsesIdentity(t *testing.T) {
	sheet := &fakeSheet{bodies: map[string]string{
		ActionStep1: `{"ok":true,"step2":{"name":"Sara","lastname":"Ahmadi","birthYear":1990,"nationalID":"0012","applicationFormNumber":"AF-7","reference":"R1","applicationType":"work","row":12}}`,
	}}
	c := newTestClient(t, sheet)

	got, err := c.Step1(context.Background(), casefile.Credentials{Username: "sara", Password: "pw", CEU: "CEU-1"})
	require.NoError(t, err)
	assert.Equal(t, "Sara", got.Name)
	assert.Equal(t, "1990", got.BirthYear)
	assert.Equal(t, "12", got.RowID)
	assert.Equal(t, "CEU-1", got.CEU)

	require.Len(t, sheet.calls, 1)
	call := sheet.calls[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, ActionStep1, call.Action)
	assert.Equal(t, "sara", call.Form.Get("username"))
	assert.Equal(t, "CEU-1", call.Form.Get("ceu"))
}

func TestStep1RejectedCarriesServerMessage(t *testing.T) {
	sheet := &fakeSheet{bodies: map[string]string{ActionStep1: `{"ok":false,"error":"Wrong password"}`}}
	c := newTestClient(t, sheet)

	_, err := c.Step1(context.Background(), casefile.Credentials{Username: "a", Password: "b", CEU: "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "Wrong password", ServerMessage(err))
	assert.False(t, IsTransport(err))
}

func TestMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":         `<html>error</html>`,
		"missing ok":       `{"sessionToken":"t","user":{}}`,
		"ok without token": `{"ok":true,"user":{"name":"x"}}`,
		"ok without user":  `{"ok":true,"sessionToken":"t"}`,
		"success not ok":   `{"success":true,"token":"t","user":{}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			sheet := &fakeSheet{bodies: map[string]string{ActionStep2: body}}
			c := newTestClient(t, sheet)
			_, _, err := c.Step2(context.Background(), casefile.PendingIdentity{CEU: "c"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestStep2ReturnsTokenAndRecord(t *testing.T) {
	sheet := &fakeSheet{bodies: map[string]string{
		ActionStep2: `{"ok":true,"sessionToken":"tok-1","user":{"name":"Sara","lastname":"Ahmadi","ceuNumber":"CEU-1","paymentStatus":"Paid","uploadPassport":"https://drive/p","uploadFingerprints":"N/A"}}`,
	}}
	c := newTestClient(t, sheet)

	token, rec, err := c.Step2(context.Background(), casefile.PendingIdentity{CEU: "CEU-1", Name: "Sara", BirthYear: "1990"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.True(t, rec.Paid())
	assert.True(t, rec.Uploaded(casefile.FieldPassport))
	assert.False(t, rec.Uploaded(casefile.FieldFingerprints))
	assert.Equal(t, "1990", sheet.calls[0].Form.Get("birthYear"))
}

func TestCheckSessionUsesGetWithToken(t *testing.T) {
	sheet := &fakeSheet{bodies: map[string]string{ActionCheckSession: `{"ok":true,"user":{"name":"Sara"}}`}}
	c := newTestClient(t, sheet)

	rec, err := c.CheckSession(context.Background(), "tok&1")
	require.NoError(t, err)
	assert.Equal(t, "Sara", rec.Name)
	require.Len(t, sheet.calls, 1)
	assert.Equal(t, http.MethodGet, sheet.calls[0].Method)
	assert.Equal(t, "tok&1", sheet.calls[0].Query.Get("token"))
}

func TestLogoutAndUpdateDocument(t *testing.T) {
	sheet := &fakeSheet{bodies: map[string]string{
		ActionLogout:         `{"ok":true}`,
		ActionUpdateDocument: `{"ok":true,"user":{"uploadPassport":"https://files/p.pdf"}}`,
	}}
	c := newTestClient(t, sheet)

	require.NoError(t, c.Logout(context.Background(), "tok"))
	rec, err := c.UpdateDocument(context.Background(), "tok", casefile.FieldPassport, "https://files/p.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://files/p.pdf", rec.Document(casefile.FieldPassport))

	assert.Equal(t, "tok", sheet.calls[0].Form.Get("sessionToken"))
	assert.Equal(t, "uploadPassport", sheet.calls[1].Form.Get("field"))
	assert.Equal(t, "https://files/p.pdf", sheet.calls[1].Form.Get("link"))
}

func TestTransportFailures(t *testing.T) {
	sheet := &fakeSheet{status: http.StatusBadGateway, bodies: map[string]string{ActionLogout: `{"ok":true}`}}
	c := newTestClient(t, sheet)
	err := c.Logout(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	closed, err := NewClient(addr, time.Second)
	require.NoError(t, err)
	_, err = closed.CheckSession(context.Background(), "secret-token")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestObserverSeesOutcomes(t *testing.T) {
	sheet := &fakeSheet{bodies: map[string]string{
		ActionLogout:       `{"ok":true}`,
		ActionCheckSession: `{"ok":false}`,
	}}
	var mu sync.Mutex
	seen := map[string]string{}
	c := newTestClient(t, sheet, WithObserver(func(action, outcome string, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		seen[action] = outcome
	}))

	_ = c.Logout(context.Background(), "t")
	_, _ = c.CheckSession(context.Background(), "t")
	assert.Equal(t, "ok", seen[ActionLogout])
	assert.Equal(t, "rejected", seen[ActionCheckSession])
}
