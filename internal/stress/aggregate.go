package stress

import (
	"math"
	"time"

	"github.com/claude/calmtrack/internal/models"
)

// WindowDays is the fixed number of calendar days in every aggregation.
const WindowDays = 7

// MaxSteps bounds a single step sample and a day's step total. Larger
// samples are dropped as invalid; totals saturate.
const MaxSteps = math.MaxInt32

// Defaults used when a day has no sample at all for a metric.
const (
	DefaultHeartRate = 72.0
	DefaultSleepHr   = 7.0
	DefaultSteps     = 8000
	DefaultCalories  = 2000.0
)

// Reading is one metric's value for a day. Samples is the number of
// observations that produced Value; zero means Value is the fixed default.
type Reading[T int | float64] struct {
	Value      T                 `json:"value"`
	Provenance models.Provenance `json:"provenance"`
	Samples    int               `json:"samples"`
}

// Defaulted reports whether no sample backed the reading.
func (r Reading[T]) Defaulted() bool { return r.Samples == 0 }

// DailyAggregate is one calendar day's rollup.
type DailyAggregate struct {
	Date           time.Time        `json:"date"`
	HeartRate      Reading[float64] `json:"heart_rate"`
	Sleep          Reading[float64] `json:"sleep"`
	Steps          Reading[int]     `json:"steps"`
	Calories       Reading[float64] `json:"calories"`
	Score          float64          `json:"score"`
	Category       Category         `json:"category"`
	HasGenuineData bool             `json:"has_genuine_data"`
}

// Source returns the provenance used for metric m on this day.
func (d DailyAggregate) Source(m models.Metric) models.Provenance {
	switch m {
	case models.MetricHeartRate:
		return d.HeartRate.Provenance
	case models.MetricSleep:
		return d.Sleep.Provenance
	case models.MetricSteps:
		return d.Steps.Provenance
	default:
		return d.Calories.Provenance
	}
}

// Value returns metric m as a float for charting and correlation.
func (d DailyAggregate) Value(m models.Metric) float64 {
	switch m {
	case models.MetricHeartRate:
		return d.HeartRate.Value
	case models.MetricSleep:
		return d.Sleep.Value
	case models.MetricSteps:
		return float64(d.Steps.Value)
	default:
		return d.Calories.Value
	}
}

// Aggregator buckets samples into the trailing calendar window.
type Aggregator struct {
	// Now returns the reference instant; defaults to time.Now.
	Now func() time.Time
	// Location defines calendar-day boundaries; defaults to time.Local.
	Location *time.Location
}

// NewAggregator creates an Aggregator bucketing by days in loc.
func NewAggregator(loc *time.Location) *Aggregator {
	return &Aggregator{Now: time.Now, Location: loc}
}

func (a *Aggregator) loc() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

func (a *Aggregator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Days returns the midnights of the window, oldest first. The first entry
// is the day containing now-7d; the day containing now is not included.
func (a *Aggregator) Days() []time.Time {
	first := dayOf(a.now().AddDate(0, 0, -WindowDays), a.loc())
	days := make([]time.Time, WindowDays)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// Window returns the half-open instant range [start, end) covered by Days.
// end is midnight of the day containing now.
func (a *Aggregator) Window() (start, end time.Time) {
	days := a.Days()
	return days[0], days[len(days)-1].AddDate(0, 0, 1)
}

// Aggregate rolls the bundle up into exactly WindowDays entries. Samples
// outside the window and samples with invalid values are ignored.
func (a *Aggregator) Aggregate(b models.Bundle) []DailyAggregate {
	loc := a.loc()

	sampleDay := func(s models.Sample) time.Time { return dayOf(s.Time, loc) }
	sleepDay := func(s models.SleepSession) time.Time { return dayOf(s.Start, loc) }

	hr := bucket(validSamples(b.HeartRate, math.MaxFloat64), sampleDay)
	steps := bucket(validSamples(b.Steps, MaxSteps), sampleDay)
	cal := bucket(validSamples(b.Calories, math.MaxFloat64), sampleDay)
	sleep := bucket(validSleep(b.Sleep), sleepDay)

	sampleProv := func(s models.Sample) models.Provenance { return s.Provenance }
	sampleVal := func(s models.Sample) float64 { return s.Value }
	stepVal := func(s models.Sample) int { return int(math.Round(s.Value)) }
	sleepProv := func(s models.SleepSession) models.Provenance { return s.Provenance }
	sleepVal := func(s models.SleepSession) float64 { return s.DurationHr }

	days := a.Days()
	out := make([]DailyAggregate, 0, len(days))
	for _, day := range days {
		d := DailyAggregate{
			Date:      day,
			HeartRate: resolve(hr[day], sampleProv, sampleVal, mean[float64], DefaultHeartRate),
			Sleep:     resolve(sleep[day], sleepProv, sleepVal, mean[float64], DefaultSleepHr),
			Steps:     resolve(steps[day], sampleProv, stepVal, sumSteps, DefaultSteps),
			Calories:  resolve(cal[day], sampleProv, sampleVal, sum[float64], DefaultCalories),
		}
		d.HasGenuineData = d.HeartRate.Provenance == models.Genuine ||
			d.Sleep.Provenance == models.Genuine ||
			d.Steps.Provenance == models.Genuine ||
			d.Calories.Provenance == models.Genuine
		d.Score, d.Category = Score(d.HeartRate.Value, d.Steps.Value, d.Sleep.Value, d.Calories.Value)
		out = append(out, d)
	}
	return out
}

// resolve picks genuine samples over substitute ones over the default and
// reduces whichever set wins.
func resolve[S any, T int | float64](items []S, prov func(S) models.Provenance, value func(S) T, reduce func([]T) T, fallback T) Reading[T] {
	var genuine, substitute []T
	for _, it := range items {
		switch prov(it) {
		case models.Genuine:
			genuine = append(genuine, value(it))
		case models.Substitute:
			substitute = append(substitute, value(it))
		}
	}
	switch {
	case len(genuine) > 0:
		return Reading[T]{Value: reduce(genuine), Provenance: models.Genuine, Samples: len(genuine)}
	case len(substitute) > 0:
		return Reading[T]{Value: reduce(substitute), Provenance: models.Substitute, Samples: len(substitute)}
	default:
		return Reading[T]{Value: fallback, Provenance: models.Substitute}
	}
}

func bucket[S any](items []S, day func(S) time.Time) map[time.Time][]S {
	m := make(map[time.Time][]S)
	for _, it := range items {
		d := day(it)
		m[d] = append(m[d], it)
	}
	return m
}

func sum[T int | float64](vs []T) T {
	var total T
	for _, v := range vs {
		total += v
	}
	return total
}

func sumSteps(vs []int) int {
	total := 0
	for _, v := range vs {
		if v >= MaxSteps-total {
			return MaxSteps
		}
		total += v
	}
	return total
}

func mean[T int | float64](vs []T) T {
	if len(vs) == 0 {
		return 0
	}
	return sum(vs) / T(len(vs))
}

// dayOf returns midnight of t's calendar day in loc. Map keys built from it
// compare equal because they share a location pointer.
func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validSamples(in []models.Sample, ceiling float64) []models.Sample {
	out := make([]models.Sample, 0, len(in))
	for _, s := range in {
		if finite(s.Value) && s.Value >= 0 && s.Value <= ceiling && s.Provenance.Valid() {
			out = append(out, s)
		}
	}
	return out
}

func validSleep(in []models.SleepSession) []models.SleepSession {
	out := make([]models.SleepSession, 0, len(in))
	for _, s := range in {
		if finite(s.DurationHr) && s.DurationHr >= 0 && s.Provenance.Valid() {
			out = append(out, s)
		}
	}
	return out
}
