package models

import (
	"fmt"
	"time"
)

// Provenance says where a sample came from. It is set by whoever produced the
// sample and is never inferred downstream.
type Provenance string

const (
	// Genuine samples come from the upstream fitness API.
	Genuine Provenance = "genuine"
	// Substitute samples are generated placeholders.
	Substitute Provenance = "substitute"
)

// Valid reports whether p is one of the known provenance tags.
func (p Provenance) Valid() bool {
	return p == Genuine || p == Substitute
}

// Metric identifies one of the four tracked vitals.
type Metric string

const (
	MetricHeartRate Metric = "heart_rate"
	MetricSleep     Metric = "sleep"
	MetricSteps     Metric = "steps"
	MetricCalories  Metric = "calories"
)

// Metrics lists every tracked metric in display order.
var Metrics = []Metric{MetricHeartRate, MetricSleep, MetricSteps, MetricCalories}

// ParseMetric maps a metric name to a Metric.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Sample is one observation of a single metric: heart rate in BPM, steps as a
// count, calories in kcal.
type Sample struct {
	Metric     Metric     `json:"metric"`
	Time       time.Time  `json:"time"`
	Value      float64    `json:"value"`
	Provenance Provenance `json:"provenance"`
}

// SleepSession is one sleep period. DurationHr is carried separately from
// Start/End because upstream sessions may report a duration that excludes
// awake segments.
type SleepSession struct {
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	DurationHr float64    `json:"duration_hr"`
	Stage      string     `json:"stage,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// NewSleepSession builds a session whose duration is derived from its bounds.
func NewSleepSession(start, end time.Time, stage string, p Provenance) SleepSession {
	return SleepSession{
		Start:      start,
		End:        end,
		DurationHr: end.Sub(start).Hours(),
		Stage:      stage,
		Provenance: p,
	}
}

// Bundle groups the raw samples for all four metrics over some time range.
type Bundle struct {
	HeartRate []Sample       `json:"heart_rate"`
	Sleep     []SleepSession `json:"sleep"`
	Steps     []Sample       `json:"steps"`
	Calories  []Sample       `json:"calories"`
}

// GenuineCounts returns the number of genuine observations per metric.
func (b Bundle) GenuineCounts() map[Metric]int {
	counts := map[Metric]int{}
	for _, s := range b.HeartRate {
		if s.Provenance == Genuine {
			counts[MetricHeartRate]++
		}
	}
	for _, s := range b.Sleep {
		if s.Provenance == Genuine {
			counts[MetricSleep]++
		}
	}
	for _, s := range b.Steps {
		if s.Provenance == Genuine {
			counts[MetricSteps]++
		}
	}
	for _, s := range b.Calories {
		if s.Provenance == Genuine {
			counts[MetricCalories]++
		}
	}
	return counts
}

// Merge appends other's samples to b.
func (b *Bundle) Merge(other Bundle) {
	b.HeartRate = append(b.HeartRate, other.HeartRate...)
	b.Sleep = append(b.Sleep, other.Sleep...)
	b.Steps = append(b.Steps, other.Steps...)
	b.Calories = append(b.Calories, other.Calories...)
}
