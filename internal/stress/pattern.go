package stress

import (
	"fmt"
	"math"
	"time"

	"github.com/claude/calmtrack/internal/models"
)

// HourBucket is the mean heart rate observed during one hour of the day.
type HourBucket struct {
	Hour  int     `json:"hour"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// HourlyProfile averages heart-rate samples by hour of day in loc. Genuine
// samples are used when any exist, otherwise substitute ones.
func HourlyProfile(samples []models.Sample, loc *time.Location) []HourBucket {
	samples = validSamples(samples, math.MaxFloat64)
	var genuine []models.Sample
	for _, s := range samples {
		if s.Provenance == models.Genuine {
			genuine = append(genuine, s)
		}
	}
	if len(genuine) > 0 {
		samples = genuine
	}

	var sums [24]float64
	var counts [24]int
	for _, s := range samples {
		h := s.Time.In(loc).Hour()
		sums[h] += s.Value
		counts[h]++
	}

	out := make([]HourBucket, 24)
	for h := range out {
		out[h] = HourBucket{Hour: h, Count: counts[h]}
		if counts[h] > 0 {
			out[h].Mean = Round1(sums[h] / float64(counts[h]))
		}
	}
	return out
}

// Timing summarizes when sleep started and ended across sessions.
type Timing struct {
	Sessions                 int     `json:"sessions"`
	AvgBedtime               string  `json:"avg_bedtime"`
	AvgWaketime              string  `json:"avg_waketime"`
	BedtimeConsistencyStdHr  float64 `json:"bedtime_consistency_stddev_hr"`
	WaketimeConsistencyStdHr float64 `json:"waketime_consistency_stddev_hr"`
}

// SleepTiming computes circular averages of bedtime and waketime.
func SleepTiming(sessions []models.SleepSession, loc *time.Location) Timing {
	sessions = validSleep(sessions)
	bed := make([]float64, 0, len(sessions))
	wake := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		bed = append(bed, hourOfDay(s.Start.In(loc)))
		wake = append(wake, hourOfDay(s.End.In(loc)))
	}

	t := Timing{Sessions: len(sessions)}
	if len(sessions) == 0 {
		return t
	}
	avgBed, stdBed := clockMean(bed)
	avgWake, stdWake := clockMean(wake)
	t.AvgBedtime = clock(avgBed)
	t.AvgWaketime = clock(avgWake)
	t.BedtimeConsistencyStdHr = math.Round(stdBed*100) / 100
	t.WaketimeConsistencyStdHr = math.Round(stdWake*100) / 100
	return t
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0 + float64(t.Second())/3600.0
}

const radPerHour = 2 * math.Pi / 24

// clockMean returns the circular mean and standard deviation of clock hours,
// so 23:00 and 01:00 average to 00:00. The mean is in [0, 24).
func clockMean(hours []float64) (mean, std float64) {
	if len(hours) == 0 {
		return 0, 0
	}

	var x, y float64
	for _, h := range hours {
		x += math.Cos(h * radPerHour)
		y += math.Sin(h * radPerHour)
	}
	n := float64(len(hours))
	x, y = x/n, y/n

	mean = math.Mod(math.Atan2(y, x)/radPerHour+24, 24)
	if r := math.Hypot(x, y); r > 0 && r < 1 {
		std = math.Sqrt(-2*math.Log(r)) / radPerHour
	}
	return mean, std
}

// clock formats fractional hours as "HH:MM", wrapping at midnight.
func clock(h float64) string {
	m := int(math.Round(h*60)) % (24 * 60)
	if m < 0 {
		m += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
