package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveEvaluation("active", 15*time.Millisecond)
	m.ObserveEvaluation("active", 5*time.Millisecond)
	m.IncTransition("EVALUATED", "SUPPRESSED")
	m.IncEvent("CREATED")
	m.IncSnoozeOperation("snooze", "ok")
	m.IncLookupFailure("checklist")
	m.IncConflictRetry("evaluate")

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("active")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("EVALUATED", "SUPPRESSED")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.lookupFailures.WithLabelValues("checklist")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.evaluationDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncEvent("SUPPRESSED")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `incidentd_lifecycle_events_total{type="SUPPRESSED"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
