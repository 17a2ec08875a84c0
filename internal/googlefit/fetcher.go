package googlefit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claude/calmtrack/internal/demo"
	"github.com/claude/calmtrack/internal/models"
)

// Source is the per-metric read surface of the Fitness API.
type Source interface {
	HeartRate(ctx context.Context, start, end time.Time) ([]models.Sample, error)
	Sleep(ctx context.Context, start, end time.Time) ([]models.SleepSession, error)
	Steps(ctx context.Context, start, end time.Time) ([]models.Sample, error)
	Calories(ctx context.Context, start, end time.Time) ([]models.Sample, error)
}

// Observer is notified of every upstream fetch. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveFetch(metric models.Metric, elapsed time.Duration, err error)
	ObserveFallback(metric models.Metric)
}

// Result is the outcome of one Fetch. Bundle holds genuine samples plus any
// substitute samples generated for failed metrics.
type Result struct {
	models.Bundle
	Fallbacks []models.Metric `json:"fallbacks,omitempty"`
	Errors    []*FetchError   `json:"errors,omitempty"`
}

// Fetcher pulls all four metrics concurrently. A failed metric never fails
// the whole fetch: it comes back empty, or as substitute samples when a
// fallback generator is configured.
type Fetcher struct {
	src      Source
	fallback *demo.Generator
	obs      Observer
	log      *slog.Logger
}

// NewFetcher creates a Fetcher. fallback and obs may be nil.
func NewFetcher(src Source, fallback *demo.Generator, obs Observer, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{src: src, fallback: fallback, obs: obs, log: log}
}

type metricResult struct {
	bundle models.Bundle
	err    error
}

// Fetch retrieves [start, end). The only error returned is the context's.
func (f *Fetcher) Fetch(ctx context.Context, start, end time.Time) (Result, error) {
	jobs := []struct {
		metric models.Metric
		run    func(context.Context) (models.Bundle, error)
	}{
		{models.MetricHeartRate, func(ctx context.Context) (models.Bundle, error) {
			s, err := f.src.HeartRate(ctx, start, end)
			return models.Bundle{HeartRate: s}, err
		}},
		{models.MetricSleep, func(ctx context.Context) (models.Bundle, error) {
			s, err := f.src.Sleep(ctx, start, end)
			return models.Bundle{Sleep: s}, err
		}},
		{models.MetricSteps, func(ctx context.Context) (models.Bundle, error) {
			s, err := f.src.Steps(ctx, start, end)
			return models.Bundle{Steps: s}, err
		}},
		{models.MetricCalories, func(ctx context.Context) (models.Bundle, error) {
			s, err := f.src.Calories(ctx, start, end)
			return models.Bundle{Calories: s}, err
		}},
	}

	results := make([]metricResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			began := time.Now()
			b, err := job.run(gctx)
			if f.obs != nil {
				f.obs.ObserveFetch(job.metric, time.Since(began), err)
			}
			results[i] = metricResult{bundle: b, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	for i, r := range results {
		m := jobs[i].metric
		if r.err == nil {
			res.Merge(r.bundle)
			continue
		}

		var fe *FetchError
		if !errors.As(r.err, &fe) {
			fe = fetchError(m, r.err)
		}
		res.Errors = append(res.Errors, fe)

		if f.fallback == nil {
			f.log.Warn("google fit fetch failed", "metric", m, "status", fe.Status, "error", fe.Message)
			continue
		}
		f.log.Warn("google fit fetch failed, using substitute data", "metric", m, "status", fe.Status, "error", fe.Message)
		res.Merge(f.fallback.Metric(m, start, end))
		res.Fallbacks = append(res.Fallbacks, m)
		if f.obs != nil {
			f.obs.ObserveFallback(m)
		}
	}
	return res, nil
}
