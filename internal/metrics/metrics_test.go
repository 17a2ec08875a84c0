package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/claude/calmtrack/internal/models"
)

func TestObserveFetch(t *testing.T) {
	r := New()
	r.ObserveFetch(models.MetricSleep, 20*time.Millisecond, nil)
	r.ObserveFetch(models.MetricSleep, 30*time.Millisecond, errors.New("boom"))
	r.ObserveFetch(models.MetricSteps, time.Millisecond, nil)

	if got := testutil.ToFloat64(r.fetches.WithLabelValues("sleep", "ok")); got != 1 {
		t.Errorf("sleep ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.fetches.WithLabelValues("sleep", "error")); got != 1 {
		t.Errorf("sleep error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.fetchDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestObserveAnalysis(t *testing.T) {
	r := New()
	r.ObserveAnalysis("demo", []float64{50, 55, 60})
	r.ObserveAnalysis("genuine", []float64{70})
	r.ObserveFallback(models.MetricHeartRate)
	r.ObserveCache("hit")
	r.ObserveCache("miss")
	r.ObserveCache("miss")
	r.ObserveSync(nil)

	if got := testutil.ToFloat64(r.analyses.WithLabelValues("demo")); got != 1 {
		t.Errorf("demo analyses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.fallbacks.WithLabelValues("heart_rate")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.syncsCompleted.WithLabelValues("ok")); got != 1 {
		t.Errorf("syncs = %v, want 1", got)
	}
}

// TestNilRecorder verifies every method is a no-op on a nil receiver.
func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveFetch(models.MetricSteps, time.Second, nil)
	r.ObserveFallback(models.MetricSteps)
	r.ObserveAnalysis("demo", []float64{1})
	r.ObserveCache("hit")
	r.ObserveSync(nil)
	r.ObserveHTTP("GET", 200, time.Second)
	if r.Registry() != nil {
		t.Error("nil Recorder returned a registry")
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposition(t *testing.T) {
	r := New()
	r.ObserveHTTP("GET", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`calmtrack_http_requests_total{method="GET",status="200"} 1`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
