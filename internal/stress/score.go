// Package stress turns daily vitals into a bounded heuristic stress score.
// Everything here is pure: no I/O, no clocks except the aggregator's
// injectable Now.
package stress

import "math"

const (
	baselineScore = 50.0

	hrHigh       = 80.0
	hrLow        = 60.0
	hrHighWeight = 0.5
	hrLowWeight  = 0.3

	stepsLow        = 5000
	stepsHigh       = 15000
	stepsLowWeight  = 0.001
	stepsHighWeight = 0.0005

	sleepShort       = 6.0
	sleepLong        = 10.0
	sleepShortWeight = 5.0
	sleepLongWeight  = 2.0

	MinScore = 0.0
	MaxScore = 100.0
)

// Category is a coarse stress band.
type Category string

const (
	CategoryLow      Category = "LOW"
	CategoryModerate Category = "MODERATE"
	CategoryHigh     Category = "HIGH"
	CategoryVeryHigh Category = "VERY_HIGH"
)

// Severity returns the presentation tag for the band.
func (c Category) Severity() string {
	switch c {
	case CategoryLow:
		return "success"
	case CategoryModerate:
		return "info"
	case CategoryHigh:
		return "warning"
	default:
		return "danger"
	}
}

// Label returns a human-readable band name.
func (c Category) Label() string {
	switch c {
	case CategoryLow:
		return "Low Stress"
	case CategoryModerate:
		return "Moderate Stress"
	case CategoryHigh:
		return "High Stress"
	default:
		return "Very High Stress"
	}
}

// Categorize maps a score onto its band. Thresholds are exclusive upper bounds.
func Categorize(score float64) Category {
	switch {
	case score < 25:
		return CategoryLow
	case score < 50:
		return CategoryModerate
	case score < 75:
		return CategoryHigh
	default:
		return CategoryVeryHigh
	}
}

// Score computes the stress score for one day's vitals. Calories are accepted
// for completeness but do not move the score. Inputs must be finite.
func Score(heartRate float64, steps int, sleepHours, calories float64) (float64, Category) {
	s := RawScore(heartRate, steps, sleepHours, calories)
	return s, Categorize(s)
}

// RawScore is Score without the category.
func RawScore(heartRate float64, steps int, sleepHours, _ float64) float64 {
	score := baselineScore

	switch {
	case heartRate > hrHigh:
		score += (heartRate - hrHigh) * hrHighWeight
	case heartRate < hrLow:
		score += (hrLow - heartRate) * hrLowWeight
	}

	switch {
	case steps < stepsLow:
		score += float64(stepsLow-steps) * stepsLowWeight
	case steps > stepsHigh:
		score += float64(steps-stepsHigh) * stepsHighWeight
	}

	switch {
	case sleepHours < sleepShort:
		score += (sleepShort - sleepHours) * sleepShortWeight
	case sleepHours > sleepLong:
		score += (sleepHours - sleepLong) * sleepLongWeight
	}

	return math.Max(MinScore, math.Min(MaxScore, score))
}

// Round1 rounds to one decimal place, the precision used in payloads.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
