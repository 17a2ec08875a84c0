package stress

import (
	"strings"
	"testing"

	"github.com/claude/calmtrack/internal/models"
)

func scored(score float64, genuine bool) DailyAggregate {
	return DailyAggregate{
		HeartRate:      Reading[float64]{Value: DefaultHeartRate},
		Sleep:          Reading[float64]{Value: DefaultSleepHr},
		Steps:          Reading[int]{Value: DefaultSteps},
		Calories:       Reading[float64]{Value: DefaultCalories},
		Score:          score,
		Category:       Categorize(score),
		HasGenuineData: genuine,
	}
}

func TestSummarize(t *testing.T) {
	days := []DailyAggregate{scored(50, false), scored(60, true), scored(70, true)}

	all, ok := Summarize(days, false)
	if !ok {
		t.Fatal("Summarize(all) ok = false")
	}
	if all != (Summary{AverageStress: 60, MaxStress: 70, MinStress: 50, DataPoints: 3}) {
		t.Errorf("Summarize(all) = %+v", all)
	}

	genuine, ok := Summarize(days, true)
	if !ok {
		t.Fatal("Summarize(genuine) ok = false")
	}
	if genuine != (Summary{AverageStress: 65, MaxStress: 70, MinStress: 60, DataPoints: 2}) {
		t.Errorf("Summarize(genuine) = %+v", genuine)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, ok := Summarize(nil, false); ok {
		t.Error("Summarize(nil) ok = true")
	}
	if _, ok := Summarize([]DailyAggregate{scored(50, false)}, true); ok {
		t.Error("Summarize(no genuine, genuineOnly) ok = true")
	}
}

func TestGenuineDays(t *testing.T) {
	days := []DailyAggregate{scored(50, false), scored(60, true), scored(70, true)}
	if got := GenuineDays(days); got != 2 {
		t.Errorf("GenuineDays = %d, want 2", got)
	}
}

// TestHasSufficientData covers both the per-metric coverage path and the
// genuine-day path.
func TestHasSufficientData(t *testing.T) {
	tests := []struct {
		name string
		cov  Coverage
		days int
		want bool
	}{
		{"all metrics covered", Coverage{HeartRatePoints: 11, SleepSessions: 3, StepPoints: 5}, 0, true},
		{"heart rate at threshold", Coverage{HeartRatePoints: 10, SleepSessions: 3, StepPoints: 5}, 0, false},
		{"sleep at threshold", Coverage{HeartRatePoints: 11, SleepSessions: 2, StepPoints: 5}, 0, false},
		{"steps short", Coverage{HeartRatePoints: 11, SleepSessions: 3, StepPoints: 4}, 0, false},
		{"three genuine days", Coverage{}, 3, true},
		{"two genuine days", Coverage{}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cov.HasSufficientData(tt.days); got != tt.want {
				t.Errorf("HasSufficientData(%d) = %v, want %v", tt.days, got, tt.want)
			}
		})
	}
}

func TestCoverageStatus(t *testing.T) {
	tests := []struct {
		cov                 Coverage
		hr, sleep, activity string
	}{
		{Coverage{HeartRatePoints: 11, SleepSessions: 3, StepPoints: 5}, StatusAvailable, StatusAvailable, StatusAvailable},
		{Coverage{HeartRatePoints: 4, SleepSessions: 1, StepPoints: 4}, StatusPartial, StatusPartial, StatusPartial},
		{Coverage{}, StatusMissing, StatusMissing, StatusMissing},
	}
	for _, tt := range tests {
		if got := tt.cov.HeartRateStatus(); got != tt.hr {
			t.Errorf("%+v HeartRateStatus = %q, want %q", tt.cov, got, tt.hr)
		}
		if got := tt.cov.SleepStatus(); got != tt.sleep {
			t.Errorf("%+v SleepStatus = %q, want %q", tt.cov, got, tt.sleep)
		}
		if got := tt.cov.ActivityStatus(); got != tt.activity {
			t.Errorf("%+v ActivityStatus = %q, want %q", tt.cov, got, tt.activity)
		}
	}
}

// TestCoverageOf verifies only genuine observations are counted.
func TestCoverageOf(t *testing.T) {
	b := models.Bundle{
		HeartRate: []models.Sample{hr(at(10, 1), 70, models.Genuine), hr(at(10, 2), 70, models.Substitute)},
		Steps:     []models.Sample{steps(at(10, 1), 100, models.Genuine)},
		Sleep: []models.SleepSession{
			models.NewSleepSession(at(9, 23), at(10, 7), "", models.Substitute),
		},
	}
	got := CoverageOf(b)
	want := Coverage{HeartRatePoints: 1, StepPoints: 1}
	if got != want {
		t.Errorf("CoverageOf = %+v, want %+v", got, want)
	}
}

func TestTrend(t *testing.T) {
	series := func(scores ...float64) []DailyAggregate {
		out := make([]DailyAggregate, len(scores))
		for i, s := range scores {
			out[i] = scored(s, true)
		}
		return out
	}

	tests := []struct {
		name string
		days []DailyAggregate
		want string
	}{
		{"falling", series(60, 60, 60, 55, 50, 50, 50), TrendImproving},
		{"rising", series(50, 50, 50, 55, 60, 60, 60), TrendWorsening},
		{"flat", series(50, 50, 50, 50, 50, 50, 50), TrendStable},
		{"swinging", series(40, 70, 50, 70, 40, 70, 50), TrendFluctuating},
		{"single day", series(90), TrendStable},
		{"empty", nil, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trend(tt.days); got != tt.want {
				t.Errorf("Trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecommendations(t *testing.T) {
	strained := DailyAggregate{
		HeartRate:      Reading[float64]{Value: 90},
		Sleep:          Reading[float64]{Value: 5},
		Steps:          Reading[int]{Value: 3000},
		Calories:       Reading[float64]{Value: 2000},
		Score:          62,
		HasGenuineData: true,
	}
	got := Recommendations([]DailyAggregate{strained})
	if len(got) != 3 {
		t.Fatalf("got %d recommendations, want 3: %v", len(got), got)
	}
	for i, want := range []string{"heart rate", "sleep", "activity"} {
		if !strings.Contains(got[i], want) {
			t.Errorf("recommendation %d = %q, want mention of %q", i, got[i], want)
		}
	}
}

// TestRecommendationsGenuineOnly verifies substitute days are ignored once
// any genuine day exists.
func TestRecommendationsGenuineOnly(t *testing.T) {
	strained := scored(62, false)
	strained.HeartRate.Value = 95
	healthy := scored(50, true)

	got := Recommendations([]DailyAggregate{strained, healthy})
	if len(got) != 1 || !strings.Contains(got[0], "healthy ranges") {
		t.Errorf("Recommendations = %v, want the healthy-range message", got)
	}
}

func TestRecommendationsEmpty(t *testing.T) {
	if got := Recommendations(nil); got != nil {
		t.Errorf("Recommendations(nil) = %v, want nil", got)
	}
}
