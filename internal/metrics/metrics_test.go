package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRPC(t *testing.T) {
	m := New()
	m.ObserveRPC("step1", "ok", 20*time.Millisecond)
	m.ObserveRPC("step1", "rejected", 10*time.Millisecond)
	m.ObserveRPC("step1", "ok", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("step1", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("step1", "rejected")))
}

func TestHandlerExposesInstruments(t *testing.T) {
	m := New()
	m.ObserveTransition("step1", "pending")
	m.SetVisitors(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.True(t, strings.Contains(out, `portal_flow_transitions_total{from="step1",to="pending"} 1`), out)
	assert.True(t, strings.Contains(out, "portal_active_visitors 3"), out)
}
