package stress

import (
	"math"

	"github.com/claude/calmtrack/internal/models"
)

// Summary is the stress statistics block shown on the dashboard.
type Summary struct {
	AverageStress float64 `json:"average_stress"`
	MaxStress     float64 `json:"max_stress"`
	MinStress     float64 `json:"min_stress"`
	DataPoints    int     `json:"data_points"`
}

// Summarize returns statistics over days. With genuineOnly set, days without
// any genuine reading are skipped. ok is false when no day qualified.
func Summarize(days []DailyAggregate, genuineOnly bool) (s Summary, ok bool) {
	var total float64
	s.MinStress = math.Inf(1)
	s.MaxStress = math.Inf(-1)
	for _, d := range days {
		if genuineOnly && !d.HasGenuineData {
			continue
		}
		score := Round1(d.Score)
		total += score
		s.MaxStress = math.Max(s.MaxStress, score)
		s.MinStress = math.Min(s.MinStress, score)
		s.DataPoints++
	}
	if s.DataPoints == 0 {
		return Summary{}, false
	}
	s.AverageStress = Round1(total / float64(s.DataPoints))
	return s, true
}

// GenuineDays counts days with at least one genuine reading.
func GenuineDays(days []DailyAggregate) int {
	n := 0
	for _, d := range days {
		if d.HasGenuineData {
			n++
		}
	}
	return n
}

// Metric availability as reported to the dashboard.
const (
	StatusAvailable = "available"
	StatusPartial   = "partial"
	StatusMissing   = "missing"
)

// Coverage counts the genuine observations fetched for each metric.
type Coverage struct {
	HeartRatePoints int `json:"heart_rate_points"`
	SleepSessions   int `json:"sleep_sessions"`
	StepPoints      int `json:"step_points"`
	CaloriePoints   int `json:"calories_points"`
}

// CoverageOf builds a Coverage from the genuine samples in b.
func CoverageOf(b models.Bundle) Coverage {
	c := b.GenuineCounts()
	return Coverage{
		HeartRatePoints: c[models.MetricHeartRate],
		SleepSessions:   c[models.MetricSleep],
		StepPoints:      c[models.MetricSteps],
		CaloriePoints:   c[models.MetricCalories],
	}
}

const (
	minHeartRatePoints = 10
	minSleepSessions   = 2
	minStepPoints      = 5
	minGenuineDays     = 3
)

// HasSufficientData reports whether enough genuine data exists for a
// meaningful analysis: every metric well covered, or at least three days
// with genuine readings.
func (c Coverage) HasSufficientData(genuineDays int) bool {
	covered := c.HeartRatePoints > minHeartRatePoints &&
		c.SleepSessions > minSleepSessions &&
		c.StepPoints >= minStepPoints
	return covered || genuineDays >= minGenuineDays
}

// HeartRateStatus classifies heart-rate coverage.
func (c Coverage) HeartRateStatus() string {
	return status(c.HeartRatePoints > minHeartRatePoints, c.HeartRatePoints)
}

// SleepStatus classifies sleep coverage.
func (c Coverage) SleepStatus() string {
	return status(c.SleepSessions > minSleepSessions, c.SleepSessions)
}

// ActivityStatus classifies step coverage.
func (c Coverage) ActivityStatus() string {
	return status(c.StepPoints >= minStepPoints, c.StepPoints)
}

func status(enough bool, n int) string {
	switch {
	case enough:
		return StatusAvailable
	case n > 0:
		return StatusPartial
	default:
		return StatusMissing
	}
}

// Trend labels stored on stress reports.
const (
	TrendImproving   = "IMPROVING"
	TrendStable      = "STABLE"
	TrendWorsening   = "WORSENING"
	TrendFluctuating = "FLUCTUATING"
)

const (
	trendShift  = 5.0
	trendSpread = 20.0
)

// Trend compares the mean score of the older half of days with the newer
// half. A shift of trendShift points or more is a direction; otherwise a
// wide spread is FLUCTUATING and anything else STABLE.
func Trend(days []DailyAggregate) string {
	n := len(days)
	if n < 2 {
		return TrendStable
	}

	half := n / 2
	var older, newer float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, d := range days {
		if i < half {
			older += d.Score
		}
		if i >= n-half {
			newer += d.Score
		}
		lo = math.Min(lo, d.Score)
		hi = math.Max(hi, d.Score)
	}
	delta := newer/float64(half) - older/float64(half)

	switch {
	case delta <= -trendShift:
		return TrendImproving
	case delta >= trendShift:
		return TrendWorsening
	case hi-lo >= trendSpread:
		return TrendFluctuating
	default:
		return TrendStable
	}
}

// Recommendations returns short advice driven by the window's averages.
// Genuine days are used when any exist.
func Recommendations(days []DailyAggregate) []string {
	use := days
	if GenuineDays(days) > 0 {
		use = use[:0:0]
		for _, d := range days {
			if d.HasGenuineData {
				use = append(use, d)
			}
		}
	}
	if len(use) == 0 {
		return nil
	}

	var hr, sleep, steps, score float64
	for _, d := range use {
		hr += d.HeartRate.Value
		sleep += d.Sleep.Value
		steps += float64(d.Steps.Value)
		score += d.Score
	}
	n := float64(len(use))
	hr, sleep, steps, score = hr/n, sleep/n, steps/n, score/n

	var out []string
	if hr > hrHigh {
		out = append(out, "Your average heart rate is elevated. Short breathing exercises or regular breaks can help.")
	}
	if sleep < sleepShort {
		out = append(out, "You are averaging less than 6 hours of sleep. Aim for 7 to 9 hours a night.")
	} else if sleep > sleepLong {
		out = append(out, "You are sleeping more than 10 hours on average. A consistent wake time may improve rest.")
	}
	if steps < stepsLow {
		out = append(out, "Your activity is low. A daily walk of 30 minutes is a good start.")
	} else if steps > stepsHigh {
		out = append(out, "Your activity is very high. Plan rest days to recover.")
	}
	if Categorize(score) == CategoryVeryHigh {
		out = append(out, "Your stress has been very high. Consider talking to a healthcare provider.")
	}
	if len(out) == 0 {
		out = append(out, "Your indicators are within healthy ranges. Keep up your current routine.")
	}
	return out
}
