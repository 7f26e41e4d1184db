package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlerServesExposition(t *testing.T) {
	m := New()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "mygrate_plan_operations_total")
}

func TestObservePlanRecordsCounters(t *testing.T) {
	m := New()
	m.ObservePlan(5*time.Millisecond, map[string]int{"create_table": 2}, 0)
	m.ObservePlan(5*time.Millisecond, nil, 3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	require.Contains(t, body, `mygrate_plan_operations_total{kind="create_table"} 2`)
	require.Contains(t, body, "mygrate_plan_1215_errors_total 3")
}

func TestMiddlewareTracksRequests(t *testing.T) {
	m := New()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plan", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)

	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, metricsRec.Body.String(), `mygrate_http_requests_total{route="/v1/plan",status="418"}`)
}
