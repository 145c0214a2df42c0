package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSettlement(t *testing.T) {
	m := New()
	m.ObserveSettlement("join", "ok", time.Now())
	m.ObserveSettlement("join", "ok", time.Now())
	m.ObserveSettlement("join", "full", time.Now())

	body := scrape(t, m)
	assert.Contains(t, body, `arena_settlement_operations_total{operation="join",outcome="ok"} 2`)
	assert.Contains(t, body, `arena_settlement_operations_total{operation="join",outcome="full"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSettlement("decide", "ok", time.Now())
		m.ObserveHTTP("/api/me", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/tournaments", http.MethodGet, http.StatusOK, 5*time.Millisecond)

	assert.Contains(t, scrape(t, m), `arena_http_requests_total{code="200",method="GET",route="/api/tournaments"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
