// Package charts renders CalmTrack analyses as standalone ECharts HTML
// pages.
package charts

import (
	"fmt"
	"io"
	"strings"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/claude/calmtrack/internal/models"
	"github.com/claude/calmtrack/internal/stress"
)

// Kind names a chart endpoint.
type Kind string

const (
	KindStress      Kind = "stress"
	KindHeartRate   Kind = "heart-rate"
	KindSleep       Kind = "sleep"
	KindSteps       Kind = "steps"
	KindCalories    Kind = "calories"
	KindCorrelation Kind = "correlation"
	KindPattern     Kind = "pattern"
)

// Kinds lists every chart kind.
var Kinds = []Kind{KindStress, KindHeartRate, KindSleep, KindSteps, KindCalories, KindCorrelation, KindPattern}

// ParseKind maps an endpoint name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart %q", s)
}

// Data is everything a chart may draw from.
type Data struct {
	Days   []stress.DailyAggregate
	Hourly []stress.HourBucket
	// Demo marks charts built from generated samples.
	Demo bool
}

// Renderer is a chart or page that writes itself as HTML.
type Renderer interface {
	Render(w io.Writer) error
}

// Build returns the chart for kind.
func Build(kind Kind, d Data) (Renderer, error) {
	switch kind {
	case KindStress:
		return Stress(d), nil
	case KindHeartRate:
		return HeartRate(d), nil
	case KindSleep:
		return Sleep(d), nil
	case KindSteps:
		return Steps(d), nil
	case KindCalories:
		return Calories(d), nil
	case KindCorrelation:
		return Correlations(d), nil
	case KindPattern:
		return Pattern(d), nil
	}
	return nil, fmt.Errorf("unknown chart %q", kind)
}

// Render writes the chart for kind to w.
func Render(w io.Writer, kind Kind, d Data) error {
	r, err := Build(kind, d)
	if err != nil {
		return err
	}
	if err := r.Render(w); err != nil {
		return fmt.Errorf("rendering %s chart: %w", kind, err)
	}
	return nil
}

const (
	width  = "900px"
	height = "400px"
)

func title(name string, d Data) opts.Title {
	t := opts.Title{Title: name}
	if d.Demo {
		t.Subtitle = "Demo data"
	}
	return t
}

func base(name string, d Data) []echarts.GlobalOpts {
	return []echarts.GlobalOpts{
		echarts.WithInitializationOpts(opts.Initialization{PageTitle: "CalmTrack: " + name, Width: width, Height: height}),
		echarts.WithTitleOpts(title(name, d)),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		echarts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	}
}

func dates(days []stress.DailyAggregate) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Date.Format("Jan 2")
	}
	return out
}

func lineData(days []stress.DailyAggregate, value func(stress.DailyAggregate) float64) []opts.LineData {
	out := make([]opts.LineData, len(days))
	for i, d := range days {
		out[i] = opts.LineData{Value: stress.Round1(value(d))}
	}
	return out
}

// barData colours days without a genuine reading for m grey.
func barData(days []stress.DailyAggregate, m models.Metric) []opts.BarData {
	out := make([]opts.BarData, len(days))
	for i, d := range days {
		out[i] = opts.BarData{Value: stress.Round1(d.Value(m))}
		if d.Source(m) != models.Genuine {
			out[i].ItemStyle = &opts.ItemStyle{Color: substituteColor}
		}
	}
	return out
}

const substituteColor = "#b0b7c3"

// Stress draws the daily stress score against its category bands.
func Stress(d Data) *echarts.Line {
	line := echarts.NewLine()
	line.SetGlobalOptions(append(base("Daily stress level", d),
		echarts.WithYAxisOpts(opts.YAxis{Name: "Stress", Min: stress.MinScore, Max: stress.MaxScore}),
	)...)
	line.SetXAxis(dates(d.Days)).
		AddSeries("Stress level", lineData(d.Days, func(a stress.DailyAggregate) float64 { return a.Score }),
			echarts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			echarts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "Moderate", YAxis: 25},
				opts.MarkLineNameYAxisItem{Name: "High", YAxis: 50},
				opts.MarkLineNameYAxisItem{Name: "Very high", YAxis: 75},
			))
	return line
}

// HeartRate draws the daily mean heart rate.
func HeartRate(d Data) *echarts.Line {
	line := echarts.NewLine()
	line.SetGlobalOptions(append(base("Average heart rate", d),
		echarts.WithYAxisOpts(opts.YAxis{Name: "BPM", Scale: opts.Bool(true)}),
	)...)
	line.SetXAxis(dates(d.Days)).
		AddSeries("Heart rate", lineData(d.Days, func(a stress.DailyAggregate) float64 { return a.HeartRate.Value }),
			echarts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func metricBar(name, unit string, m models.Metric, d Data) *echarts.Bar {
	bar := echarts.NewBar()
	bar.SetGlobalOptions(append(base(name, d),
		echarts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)...)
	bar.SetXAxis(dates(d.Days)).AddSeries(name, barData(d.Days, m))
	return bar
}

// Sleep draws nightly sleep duration.
func Sleep(d Data) *echarts.Bar {
	return metricBar("Sleep duration", "Hours", models.MetricSleep, d)
}

// Steps draws daily step totals.
func Steps(d Data) *echarts.Bar {
	return metricBar("Steps", "Steps", models.MetricSteps, d)
}

// Calories draws daily calories expended.
func Calories(d Data) *echarts.Bar {
	return metricBar("Calories", "kcal", models.MetricCalories, d)
}

// Correlation plots stress against one metric, with r in the title.
func Correlation(c stress.Correlation, d Data) *echarts.Scatter {
	points := make([]opts.ScatterData, len(c.Values))
	for i := range c.Values {
		points[i] = opts.ScatterData{Value: []float64{stress.Round1(c.Values[i]), stress.Round1(c.Stress[i])}, SymbolSize: 12}
	}

	name := label(c.Metric)
	sc := echarts.NewScatter()
	sc.SetGlobalOptions(
		echarts.WithInitializationOpts(opts.Initialization{Width: width, Height: height}),
		echarts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Stress vs %s (r = %.2f, %s)", name, c.Coefficient, c.Strength),
			Subtitle: title("", d).Subtitle,
		}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		echarts.WithXAxisOpts(opts.XAxis{Name: name, Type: "value", Scale: opts.Bool(true)}),
		echarts.WithYAxisOpts(opts.YAxis{Name: "Stress", Scale: opts.Bool(true)}),
	)
	sc.AddSeries(name, points)
	return sc
}

// Correlations places one scatter per metric on a single page.
func Correlations(d Data) *components.Page {
	page := components.NewPage()
	page.PageTitle = "CalmTrack: stress correlations"
	for _, c := range stress.Correlations(d.Days) {
		page.AddCharts(Correlation(c, d))
	}
	return page
}

// Pattern draws mean heart rate by hour of day.
func Pattern(d Data) *echarts.Bar {
	hours := make([]string, len(d.Hourly))
	values := make([]opts.BarData, len(d.Hourly))
	for i, b := range d.Hourly {
		hours[i] = fmt.Sprintf("%02d:00", b.Hour)
		values[i] = opts.BarData{Value: stress.Round1(b.Mean)}
	}

	bar := echarts.NewBar()
	bar.SetGlobalOptions(append(base("Heart rate by hour of day", d),
		echarts.WithYAxisOpts(opts.YAxis{Name: "BPM", Scale: opts.Bool(true)}),
	)...)
	bar.SetXAxis(hours).AddSeries("Mean heart rate", values)
	return bar
}

// Overview renders every daily chart on one page.
func Overview(w io.Writer, d Data) error {
	page := components.NewPage()
	page.PageTitle = "CalmTrack overview"
	page.AddCharts(Stress(d), HeartRate(d), Sleep(d), Steps(d), Calories(d), Pattern(d))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering overview: %w", err)
	}
	return nil
}

func label(m models.Metric) string {
	s := strings.ReplaceAll(string(m), "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
