// Package demo generates plausible substitute vitals for accounts without
// usable upstream data. Every sample it produces is tagged
// models.Substitute.
package demo

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/claude/calmtrack/internal/models"
)

// maxHeartRateHours caps generated heart-rate series at one week of hourly
// readings, the most recent week of the range.
const maxHeartRateHours = 24 * 7

var sleepStages = []string{
	models.SleepStageDeep,
	models.SleepStageLight,
	models.SleepStageREM,
	models.SleepStageAwake,
}

// Generator produces substitute samples. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Generator with a fixed seed, for reproducible output.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom returns a randomly seeded Generator.
func NewRandom() *Generator {
	return New(rand.Uint64())
}

func (g *Generator) normal(mean, stddev float64) float64 {
	return mean + g.rng.NormFloat64()*stddev
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Bundle generates all four metrics for [start, end].
func (g *Generator) Bundle(start, end time.Time) models.Bundle {
	return models.Bundle{
		HeartRate: g.HeartRate(start, end),
		Sleep:     g.Sleep(start, end),
		Steps:     g.Steps(start, end),
		Calories:  g.Calories(start, end),
	}
}

// Metric generates a bundle holding only metric m.
func (g *Generator) Metric(m models.Metric, start, end time.Time) models.Bundle {
	var b models.Bundle
	switch m {
	case models.MetricHeartRate:
		b.HeartRate = g.HeartRate(start, end)
	case models.MetricSleep:
		b.Sleep = g.Sleep(start, end)
	case models.MetricSteps:
		b.Steps = g.Steps(start, end)
	case models.MetricCalories:
		b.Calories = g.Calories(start, end)
	}
	return b
}

// HeartRate generates hourly readings whose baseline follows the time of day.
func (g *Generator) HeartRate(start, end time.Time) []models.Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	first := start.Truncate(time.Hour)
	if first.Before(start) {
		first = first.Add(time.Hour)
	}
	if oldest := end.Truncate(time.Hour).Add(-(maxHeartRateHours - 1) * time.Hour); oldest.After(first) {
		first = oldest
	}

	var out []models.Sample
	for t := first; !t.After(end); t = t.Add(time.Hour) {
		var base float64
		switch h := t.Hour(); {
		case h >= 2 && h <= 6:
			base = g.normal(58, 3)
		case h >= 7 && h <= 9:
			base = g.normal(72, 5)
		case h >= 10 && h <= 18:
			base = g.normal(78, 8)
		default:
			base = g.normal(68, 4)
		}
		out = append(out, models.Sample{
			Metric:     models.MetricHeartRate,
			Time:       t,
			Value:      round1(clamp(base+g.normal(0, 2), 50, 120)),
			Provenance: models.Substitute,
		})
	}
	return out
}

// Sleep generates a session for most nights, starting around 23:00.
func (g *Generator) Sleep(start, end time.Time) []models.SleepSession {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []models.SleepSession
	for day := midnight(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		if g.rng.Float64() <= 0.2 {
			continue
		}
		hours := clamp(g.normal(7.5, 1), 4, 10)
		bedtime := day.Add(time.Duration(g.normal(23, 1.5) * float64(time.Hour)))
		out = append(out, models.SleepSession{
			Start:      bedtime,
			End:        bedtime.Add(time.Duration(hours * float64(time.Hour))),
			DurationHr: round1(hours),
			Stage:      sleepStages[g.rng.IntN(len(sleepStages))],
			Provenance: models.Substitute,
		})
	}
	return out
}

// Steps generates one daily total per calendar day, lower on weekends.
func (g *Generator) Steps(start, end time.Time) []models.Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []models.Sample
	for day := midnight(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		var n float64
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			n = g.normal(6000, 2000)
		} else {
			n = g.normal(8000, 1500)
		}
		out = append(out, models.Sample{
			Metric:     models.MetricSteps,
			Time:       day,
			Value:      math.Trunc(clamp(n, 1000, 20000)),
			Provenance: models.Substitute,
		})
	}
	return out
}

// Calories generates one daily total per calendar day.
func (g *Generator) Calories(start, end time.Time) []models.Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []models.Sample
	for day := midnight(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		active := g.normal(8000, 2000) * 0.04
		out = append(out, models.Sample{
			Metric:     models.MetricCalories,
			Time:       day,
			Value:      round1(clamp(active+g.normal(1600, 200), 1200, 3500)),
			Provenance: models.Substitute,
		})
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
