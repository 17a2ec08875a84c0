// Package insights turns fetched Google Fit samples into the stress
// analyses, payloads and stored reports served by CalmTrack.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/calmtrack/internal/cache"
	"github.com/claude/calmtrack/internal/demo"
	"github.com/claude/calmtrack/internal/googlefit"
	"github.com/claude/calmtrack/internal/models"
	"github.com/claude/calmtrack/internal/storage"
	"github.com/claude/calmtrack/internal/stress"
)

// Lookbacks in days.
const (
	DashboardLookbackDays = 30
	APILookbackDays       = 7
)

// ErrNoStorage is returned by history queries when no database is configured.
var ErrNoStorage = errors.New("persistence not configured")

// Connector yields an authorized Fetcher for a login, or
// googlefit.ErrNotConnected.
type Connector interface {
	Connect(ctx context.Context, login string) (*googlefit.Fetcher, error)
}

// Cache stores fetch results between requests.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Invalidate(ctx context.Context, login string) error
}

// Store is the persistence surface used by the service.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	UserID(ctx context.Context, login string) (int, error)
	UpsertStressDays(ctx context.Context, rows []models.StressDayRow) (int64, error)
	QueryStressDays(ctx context.Context, userID int, start, end time.Time) ([]models.StressDayRow, error)
	UpsertStressReport(ctx context.Context, r models.StressReportRow) (uuid.UUID, error)
	QueryStressReports(ctx context.Context, userID, limit int) ([]models.StressReportRow, error)
	LatestStressReport(ctx context.Context, userID int) (*models.StressReportRow, error)
	InsertSyncLog(ctx context.Context, log storage.SyncLog) (int64, error)
	UpdateSyncLog(ctx context.Context, id int64, log storage.SyncLog) error
}

// SyncMarker records when a login last synced.
type SyncMarker interface {
	MarkSynced(ctx context.Context, login string, t time.Time) error
}

// Observer receives analysis, cache and sync events.
type Observer interface {
	ObserveAnalysis(mode string, scores []float64)
	ObserveCache(result string)
	ObserveSync(err error)
}

// Options configures a Service. Only Connector is required.
type Options struct {
	Connector Connector
	Cache     Cache
	Store     Store
	Marker    SyncMarker
	Observer  Observer
	Demo      *demo.Generator
	Location  *time.Location
	Now       func() time.Time
	Logger    *slog.Logger
}

// Service runs analyses for logins.
type Service struct {
	conn   Connector
	cache  Cache
	store  Store
	marker SyncMarker
	obs    Observer
	demo   *demo.Generator
	agg    *stress.Aggregator
	now    func() time.Time
	log    *slog.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		conn:   opts.Connector,
		cache:  opts.Cache,
		store:  opts.Store,
		marker: opts.Marker,
		obs:    opts.Observer,
		demo:   opts.Demo,
		now:    opts.Now,
		log:    opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.demo == nil {
		s.demo = demo.NewRandom()
	}
	s.agg = &stress.Aggregator{Now: s.now, Location: opts.Location}
	return s
}

// HasStorage reports whether a database is configured.
func (s *Service) HasStorage() bool { return s.store != nil }

// Analysis is one run of the aggregator over fetched or generated samples.
type Analysis struct {
	Login string
	// Start and End bound the fetched samples. Days always covers the
	// trailing stress.WindowDays inside that range.
	Start, End time.Time
	Connected  bool
	// Demo is set when Days came from generated samples only.
	Demo        bool
	Days        []stress.DailyAggregate
	Bundle      models.Bundle
	Coverage    stress.Coverage
	GenuineDays int
	Fallbacks   []models.Metric
	Errors      []*googlefit.FetchError
}

// SufficientData applies the coverage rule to this analysis.
func (a *Analysis) SufficientData() bool {
	return a.Coverage.HasSufficientData(a.GenuineDays)
}

// Scores returns the daily scores, oldest first.
func (a *Analysis) Scores() []float64 {
	out := make([]float64, len(a.Days))
	for i, d := range a.Days {
		out[i] = d.Score
	}
	return out
}

// Analyze fetches lookbackDays of samples for login and aggregates the
// trailing window. It returns googlefit.ErrNotConnected when login has no
// token.
func (s *Service) Analyze(ctx context.Context, login string, lookbackDays int) (*Analysis, error) {
	return s.analyze(ctx, login, lookbackDays, true)
}

func (s *Service) analyze(ctx context.Context, login string, lookbackDays int, useCache bool) (*Analysis, error) {
	if lookbackDays < stress.WindowDays {
		lookbackDays = stress.WindowDays
	}
	_, end := s.agg.Window()
	start := end.AddDate(0, 0, -lookbackDays)

	fetcher, err := s.conn.Connect(ctx, login)
	if err != nil {
		return nil, err
	}

	key := cache.Key(login, start, end)
	res, hit := s.cached(ctx, key, useCache)
	if !hit {
		res, err = fetcher.Fetch(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching google fit data: %w", err)
		}
		// Partial results are not cached so the next request retries.
		if s.cache != nil && len(res.Errors) == 0 {
			if err := s.cache.Set(ctx, key, res); err != nil {
				s.log.Warn("cache write failed", "key", key, "error", err)
			}
		}
	}

	a := &Analysis{
		Login:     login,
		Start:     start,
		End:       end,
		Connected: true,
		Bundle:    res.Bundle,
		Fallbacks: res.Fallbacks,
		Errors:    res.Errors,
	}
	a.Days = s.agg.Aggregate(res.Bundle)
	a.Coverage = stress.CoverageOf(res.Bundle)
	a.GenuineDays = stress.GenuineDays(a.Days)

	if s.obs != nil {
		s.obs.ObserveAnalysis("genuine", a.Scores())
	}
	s.log.Debug("analysis complete", "login", login, "genuine_days", a.GenuineDays,
		"heart_rate_points", a.Coverage.HeartRatePoints, "sleep_sessions", a.Coverage.SleepSessions,
		"step_points", a.Coverage.StepPoints, "fallbacks", len(a.Fallbacks))
	return a, nil
}

func (s *Service) cached(ctx context.Context, key string, useCache bool) (googlefit.Result, bool) {
	var res googlefit.Result
	if s.cache == nil || !useCache {
		return res, false
	}
	ok, err := s.cache.Get(ctx, key, &res)
	switch {
	case err != nil:
		s.log.Warn("cache read failed", "key", key, "error", err)
		s.observeCache("error")
		return googlefit.Result{}, false
	case !ok:
		s.observeCache("miss")
		return res, false
	}
	s.observeCache("hit")
	return res, true
}

func (s *Service) observeCache(result string) {
	if s.obs != nil {
		s.obs.ObserveCache(result)
	}
}

// DemoAnalysis aggregates freshly generated substitute samples over the
// current window.
func (s *Service) DemoAnalysis(login string) *Analysis {
	start, end := s.agg.Window()
	b := s.demo.Bundle(start, end)
	a := &Analysis{
		Login:  login,
		Start:  start,
		End:    end,
		Demo:   true,
		Bundle: b,
		Days:   s.agg.Aggregate(b),
	}
	if s.obs != nil {
		s.obs.ObserveAnalysis("demo", a.Scores())
	}
	return a
}

// Current returns the 7-day analysis for login, or a demo analysis when
// login is not connected or no day carries genuine data.
func (s *Service) Current(ctx context.Context, login string) (*Analysis, error) {
	a, err := s.Analyze(ctx, login, APILookbackDays)
	if errors.Is(err, googlefit.ErrNotConnected) {
		return s.DemoAnalysis(login), nil
	}
	if err != nil {
		return nil, err
	}
	if a.GenuineDays == 0 {
		d := s.DemoAnalysis(login)
		d.Connected = true
		return d, nil
	}
	return a, nil
}

// Insights returns the chart-ready insights payload for login.
func (s *Service) Insights(ctx context.Context, login string) (*Insights, error) {
	a, err := s.Current(ctx, login)
	if err != nil {
		return nil, err
	}
	return NewInsights(a), nil
}

// Analysis returns the combined analysis payload for login.
func (s *Service) Analysis(ctx context.Context, login string) (*AnalysisPayload, error) {
	a, err := s.Current(ctx, login)
	if err != nil {
		return nil, err
	}
	return NewAnalysisPayload(a), nil
}

// Dashboard builds the dashboard view for login over the 30-day lookback.
// Fetch failures become error messages instead of errors.
func (s *Service) Dashboard(ctx context.Context, login string) *Dashboard {
	d := newDashboard(login)

	a, err := s.Analyze(ctx, login, DashboardLookbackDays)
	switch {
	case errors.Is(err, googlefit.ErrNotConnected):
		return d
	case err != nil:
		s.log.Error("dashboard analysis failed", "login", login, "error", err)
		d.GoogleFitConnected = true
		d.addMessage(LevelError, "Error fetching Google Fit data: "+err.Error())
		return d
	}
	d.fill(a)

	if s.store != nil {
		if r, err := s.latestStored(ctx, login); err == nil {
			d.StoredReport = r
		} else if !errors.Is(err, storage.ErrNoReport) && !errors.Is(err, storage.ErrUnknownUser) {
			s.log.Warn("loading stored report", "login", login, "error", err)
		}
	}
	return d
}

// Correlations returns stress-vs-metric correlations over the current
// analysis.
func (s *Service) Correlations(ctx context.Context, login string) (*CorrelationPayload, error) {
	a, err := s.Current(ctx, login)
	if err != nil {
		return nil, err
	}
	return NewCorrelationPayload(a), nil
}

// Pattern returns the hourly heart-rate profile and sleep timing for the
// current analysis.
func (s *Service) Pattern(ctx context.Context, login string) (*PatternPayload, error) {
	a, err := s.Current(ctx, login)
	if err != nil {
		return nil, err
	}
	return s.NewPatternPayload(a), nil
}

// NewPatternPayload derives the pattern payload from a.
func (s *Service) NewPatternPayload(a *Analysis) *PatternPayload {
	loc := s.agg.Location
	if loc == nil {
		loc = time.Local
	}
	return &PatternPayload{
		Demo:   a.Demo,
		Hourly: stress.HourlyProfile(a.Bundle.HeartRate, loc),
		Sleep:  stress.SleepTiming(a.Bundle.Sleep, loc),
	}
}

// History returns the stored stress days for login over the last days days.
func (s *Service) History(ctx context.Context, login string, days int) ([]models.StressDayRow, error) {
	if s.store == nil {
		return nil, ErrNoStorage
	}
	if days <= 0 {
		days = DashboardLookbackDays
	}
	id, err := s.store.UserID(ctx, login)
	if errors.Is(err, storage.ErrUnknownUser) {
		return []models.StressDayRow{}, nil
	}
	if err != nil {
		return nil, err
	}
	_, end := s.agg.Window()
	rows, err := s.store.QueryStressDays(ctx, id, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.StressDayRow{}
	}
	return rows, nil
}

// Reports returns login's most recent stored reports.
func (s *Service) Reports(ctx context.Context, login string, limit int) ([]models.StressReportRow, error) {
	if s.store == nil {
		return nil, ErrNoStorage
	}
	id, err := s.store.UserID(ctx, login)
	if errors.Is(err, storage.ErrUnknownUser) {
		return []models.StressReportRow{}, nil
	}
	if err != nil {
		return nil, err
	}
	reports, err := s.store.QueryStressReports(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.StressReportRow{}
	}
	return reports, nil
}

// LatestReport returns login's newest stored report, or storage.ErrNoReport.
func (s *Service) LatestReport(ctx context.Context, login string) (*models.StressReportRow, error) {
	if s.store == nil {
		return nil, ErrNoStorage
	}
	return s.latestStored(ctx, login)
}

func (s *Service) latestStored(ctx context.Context, login string) (*models.StressReportRow, error) {
	id, err := s.store.UserID(ctx, login)
	if errors.Is(err, storage.ErrUnknownUser) {
		return nil, storage.ErrNoReport
	}
	if err != nil {
		return nil, err
	}
	return s.store.LatestStressReport(ctx, id)
}
