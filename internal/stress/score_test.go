package stress

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// TestScoreAdjustments verifies each metric's contribution on top of the
// baseline, one metric at a time.
func TestScoreAdjustments(t *testing.T) {
	tests := []struct {
		name  string
		hr    float64
		steps int
		sleep float64
		want  float64
	}{
		{"neutral", 70, 8000, 8, 50},
		{"hr at upper bound", 80, 8000, 8, 50},
		{"hr at lower bound", 60, 8000, 8, 50},
		{"elevated hr", 90, 8000, 8, 55},
		{"low hr", 50, 8000, 8, 53},
		{"few steps", 70, 3000, 8, 52},
		{"steps at lower bound", 70, 5000, 8, 50},
		{"very many steps", 70, 20000, 8, 52.5},
		{"steps at upper bound", 70, 15000, 8, 50},
		{"short sleep", 70, 8000, 4, 60},
		{"long sleep", 70, 8000, 12, 54},
		{"sleep at bounds", 70, 8000, 6, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Score(tt.hr, tt.steps, tt.sleep, 2000)
			if !approx(got, tt.want) {
				t.Errorf("Score(%v, %d, %v) = %v, want %v", tt.hr, tt.steps, tt.sleep, got, tt.want)
			}
		})
	}
}

// TestScoreCombined checks that adjustments add up across metrics.
func TestScoreCombined(t *testing.T) {
	got, cat := Score(90, 3000, 5, 2000)
	if !approx(got, 62) {
		t.Errorf("score = %v, want 62", got)
	}
	if cat != CategoryHigh {
		t.Errorf("category = %s, want HIGH", cat)
	}
}

// TestScoreClamped verifies extreme inputs never leave [0, 100].
func TestScoreClamped(t *testing.T) {
	got, cat := Score(250, 0, 0, 2000)
	if got != MaxScore {
		t.Errorf("score = %v, want %v", got, MaxScore)
	}
	if cat != CategoryVeryHigh {
		t.Errorf("category = %s, want VERY_HIGH", cat)
	}

	got, _ = Score(0, 1_000_000, 100, 2000)
	if got < MinScore || got > MaxScore {
		t.Errorf("score = %v out of range", got)
	}
}

// TestScoreMonotonic verifies that worsening any single input never lowers
// the score.
func TestScoreMonotonic(t *testing.T) {
	prev := -1.0
	for hr := 80.0; hr <= 200; hr += 5 {
		s, _ := Score(hr, 8000, 8, 2000)
		if s < prev {
			t.Fatalf("score decreased at hr=%v: %v < %v", hr, s, prev)
		}
		prev = s
	}

	prev = -1.0
	for sleep := 6.0; sleep >= 0; sleep -= 0.5 {
		s, _ := Score(70, 8000, sleep, 2000)
		if s < prev {
			t.Fatalf("score decreased at sleep=%v: %v < %v", sleep, s, prev)
		}
		prev = s
	}

	prev = -1.0
	for steps := 5000; steps >= 0; steps -= 250 {
		s, _ := Score(70, steps, 8, 2000)
		if s < prev {
			t.Fatalf("score decreased at steps=%d: %v < %v", steps, s, prev)
		}
		prev = s
	}
}

// TestScoreIgnoresCalories verifies calories do not move the score.
func TestScoreIgnoresCalories(t *testing.T) {
	a, _ := Score(85, 4000, 7, 0)
	b, _ := Score(85, 4000, 7, 9999)
	if a != b {
		t.Errorf("calories changed score: %v vs %v", a, b)
	}
}

// TestCategorizeBoundaries verifies band edges are exclusive upper bounds.
func TestCategorizeBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Category
	}{
		{0, CategoryLow},
		{24.9, CategoryLow},
		{25, CategoryModerate},
		{49.9, CategoryModerate},
		// Bounds are exclusive upper bounds, so the default-day score 50 is HIGH.
		{50, CategoryHigh},
		{74.9, CategoryHigh},
		{75, CategoryVeryHigh},
		{100, CategoryVeryHigh},
	}

	for _, tt := range tests {
		if got := Categorize(tt.score); got != tt.want {
			t.Errorf("Categorize(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCategoryPresentation(t *testing.T) {
	tests := []struct {
		cat      Category
		severity string
		label    string
	}{
		{CategoryLow, "success", "Low Stress"},
		{CategoryModerate, "info", "Moderate Stress"},
		{CategoryHigh, "warning", "High Stress"},
		{CategoryVeryHigh, "danger", "Very High Stress"},
	}

	for _, tt := range tests {
		if got := tt.cat.Severity(); got != tt.severity {
			t.Errorf("%s.Severity() = %q, want %q", tt.cat, got, tt.severity)
		}
		if got := tt.cat.Label(); got != tt.label {
			t.Errorf("%s.Label() = %q, want %q", tt.cat, got, tt.label)
		}
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{52.44, 52.4},
		{52.46, 52.5},
		{50, 50},
		{0.04, 0},
	}
	for _, tt := range tests {
		if got := Round1(tt.in); !approx(got, tt.want) {
			t.Errorf("Round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
