package stress

import (
	"math"

	"github.com/claude/calmtrack/internal/models"
)

// Pearson returns the Pearson correlation coefficient of x and y. Mismatched
// lengths, empty input and zero variance all yield 0.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}

	var sumX, sumY float64
	for i := range n {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var num, denX, denY float64
	for i := range n {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}

	den := math.Sqrt(denX * denY)
	if den == 0 {
		return 0
	}
	return num / den
}

// Correlation relates the daily stress score to one metric.
type Correlation struct {
	Metric      models.Metric `json:"metric"`
	Coefficient float64       `json:"coefficient"`
	Strength    string        `json:"strength"`
	Stress      []float64     `json:"stress"`
	Values      []float64     `json:"values"`
}

// Correlations computes stress-vs-metric correlations across days, one entry
// per metric in models.Metrics order.
func Correlations(days []DailyAggregate) []Correlation {
	scores := make([]float64, len(days))
	for i, d := range days {
		scores[i] = d.Score
	}

	out := make([]Correlation, 0, len(models.Metrics))
	for _, m := range models.Metrics {
		vals := make([]float64, len(days))
		for i, d := range days {
			vals[i] = d.Value(m)
		}
		r := Pearson(scores, vals)
		out = append(out, Correlation{
			Metric:      m,
			Coefficient: math.Round(r*1000) / 1000,
			Strength:    strength(r),
			Stress:      scores,
			Values:      vals,
		})
	}
	return out
}

func strength(r float64) string {
	a := math.Abs(r)
	switch {
	case a >= 0.7:
		return "strong"
	case a >= 0.4:
		return "moderate"
	case a >= 0.2:
		return "weak"
	default:
		return "none"
	}
}
