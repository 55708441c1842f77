package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

	body := scrape(t, m)
	require.Contains(t, body, `ledgerline_http_requests_total{code="418",route="unknown"} 1`)
}

func TestObserveImportCountsByOutcome(t *testing.T) {
	m := NewMetrics()
	m.ObserveImport(7, 2, 1, 250*time.Millisecond)
	m.ObserveBatchRetry()

	body := scrape(t, m)
	require.Contains(t, body, `ledgerline_import_rows_total{outcome="imported"} 7`)
	require.Contains(t, body, `ledgerline_import_rows_total{outcome="failed"} 2`)
	require.Contains(t, body, `ledgerline_import_rows_total{outcome="skipped"} 1`)
	require.Contains(t, body, `ledgerline_import_batch_retries_total 1`)
	require.True(t, strings.Contains(body, "ledgerline_import_duration_seconds_count 1"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveImport(1, 0, 0, time.Second)
	m.ObserveBatchRetry()
	require.NotNil(t, m.Handler())
	require.NotNil(t, m.Registerer())

	passthrough := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	passthrough.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
