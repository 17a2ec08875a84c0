// Package metrics exposes Prometheus instrumentation for CalmTrack. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/calmtrack/internal/models"
)

// Recorder owns a private registry and every CalmTrack collector.
type Recorder struct {
	reg *prometheus.Registry

	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	analyses       *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	dailyScores    prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	syncsCompleted *prometheus.CounterVec
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calmtrack_googlefit_fetch_total",
			Help: "Google Fit fetches by metric and outcome.",
		}, []string{"metric", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calmtrack_googlefit_fetch_duration_seconds",
			Help:    "Google Fit fetch latency by metric.",
			Buckets: prometheus.DefBuckets,
		}, []string{"metric"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calmtrack_googlefit_fallback_total",
			Help: "Metrics replaced by substitute data after a failed fetch.",
		}, []string{"metric"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calmtrack_analyses_total",
			Help: "Stress analyses by data mode.",
		}, []string{"mode"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calmtrack_cache_lookups_total",
			Help: "Fetch cache lookups by result.",
		}, []string{"result"}),
		dailyScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calmtrack_daily_stress_score",
			Help:    "Distribution of computed daily stress scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calmtrack_http_requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calmtrack_http_request_duration_seconds",
			Help:    "HTTP request latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		syncsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calmtrack_syncs_total",
			Help: "Sync runs by outcome.",
		}, []string{"outcome"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.fetches, r.fetchDuration, r.fallbacks, r.analyses, r.cacheLookups,
		r.dailyScores, r.httpRequests, r.httpDuration, r.syncsCompleted,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveFetch records one upstream fetch.
func (r *Recorder) ObserveFetch(m models.Metric, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fetches.WithLabelValues(string(m), outcome).Inc()
	r.fetchDuration.WithLabelValues(string(m)).Observe(elapsed.Seconds())
}

// ObserveFallback records a metric replaced by substitute data.
func (r *Recorder) ObserveFallback(m models.Metric) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(string(m)).Inc()
}

// ObserveAnalysis records one analysis and its daily scores. mode is
// "genuine" or "demo".
func (r *Recorder) ObserveAnalysis(mode string, scores []float64) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(mode).Inc()
	for _, s := range scores {
		r.dailyScores.Observe(s)
	}
}

// ObserveCache records a cache lookup: "hit", "miss" or "error".
func (r *Recorder) ObserveCache(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveSync records a finished sync run.
func (r *Recorder) ObserveSync(err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.syncsCompleted.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
