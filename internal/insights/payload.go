package insights

import (
	"fmt"

	"github.com/claude/calmtrack/internal/models"
	"github.com/claude/calmtrack/internal/stress"
)

// Data source labels reported per metric and day.
const (
	SourceGoogleFit = "google_fit"
	SourceDemo      = "demo"
)

const dateLayout = "2006-01-02"

// DayPoint is one day of processed data.
type DayPoint struct {
	Date           string            `json:"date"`
	StressLevel    float64           `json:"stress_level"`
	StressCategory string            `json:"stress_category"`
	Severity       string            `json:"severity"`
	HeartRate      float64           `json:"heart_rate"`
	SleepDuration  float64           `json:"sleep_duration"`
	Steps          int               `json:"steps"`
	Calories       float64           `json:"calories"`
	HasRealData    bool              `json:"has_real_data"`
	DataSources    map[string]string `json:"data_sources"`
}

// NewDayPoint rounds d for display.
func NewDayPoint(d stress.DailyAggregate) DayPoint {
	sources := make(map[string]string, len(models.Metrics))
	for _, m := range models.Metrics {
		sources[string(m)] = sourceLabel(d.Source(m))
	}
	return DayPoint{
		Date:           d.Date.Format(dateLayout),
		StressLevel:    stress.Round1(d.Score),
		StressCategory: string(d.Category),
		Severity:       d.Category.Severity(),
		HeartRate:      stress.Round1(d.HeartRate.Value),
		SleepDuration:  stress.Round1(d.Sleep.Value),
		Steps:          d.Steps.Value,
		Calories:       stress.Round1(d.Calories.Value),
		HasRealData:    d.HasGenuineData,
		DataSources:    sources,
	}
}

func sourceLabel(p models.Provenance) string {
	if p == models.Genuine {
		return SourceGoogleFit
	}
	return SourceDemo
}

// Series holds the per-day chart arrays shared by the insights and analysis
// payloads.
type Series struct {
	Timestamps     []string       `json:"timestamps"`
	StressLevels   []float64      `json:"stress_levels"`
	HeartRates     []float64      `json:"heart_rates"`
	SleepDurations []float64      `json:"sleep_durations"`
	StepsData      []int          `json:"steps_data"`
	CaloriesData   []float64      `json:"calories_data"`
	ProcessedData  []DayPoint     `json:"processed_data"`
	Statistics     stress.Summary `json:"statistics"`
}

// NewSeries builds a Series from days. Statistics cover every day.
func NewSeries(days []stress.DailyAggregate) Series {
	s := Series{
		Timestamps:     make([]string, 0, len(days)),
		StressLevels:   make([]float64, 0, len(days)),
		HeartRates:     make([]float64, 0, len(days)),
		SleepDurations: make([]float64, 0, len(days)),
		StepsData:      make([]int, 0, len(days)),
		CaloriesData:   make([]float64, 0, len(days)),
		ProcessedData:  make([]DayPoint, 0, len(days)),
	}
	for _, d := range days {
		p := NewDayPoint(d)
		s.Timestamps = append(s.Timestamps, p.Date)
		s.StressLevels = append(s.StressLevels, p.StressLevel)
		s.HeartRates = append(s.HeartRates, p.HeartRate)
		s.SleepDurations = append(s.SleepDurations, p.SleepDuration)
		s.StepsData = append(s.StepsData, p.Steps)
		s.CaloriesData = append(s.CaloriesData, p.Calories)
		s.ProcessedData = append(s.ProcessedData, p)
	}
	s.Statistics, _ = stress.Summarize(days, false)
	return s
}

// DataMetrics describes how much genuine data backs an insights payload.
type DataMetrics struct {
	RealDataDays      int  `json:"real_data_days"`
	TotalDays         int  `json:"total_days"`
	HasSufficientData bool `json:"has_sufficient_data"`
	HasRealData       bool `json:"has_real_data"`
	stress.Coverage
}

// Insights is the payload of the insights endpoint.
type Insights struct {
	Series
	DataMetrics DataMetrics `json:"data_metrics"`
	Demo        bool        `json:"demo"`
}

// NewInsights shapes a into an Insights payload.
func NewInsights(a *Analysis) *Insights {
	return &Insights{
		Series: NewSeries(a.Days),
		DataMetrics: DataMetrics{
			RealDataDays:      a.GenuineDays,
			TotalDays:         len(a.Days),
			HasSufficientData: a.SufficientData(),
			HasRealData:       a.GenuineDays > 0,
			Coverage:          a.Coverage,
		},
		Demo: a.Demo,
	}
}

// AnalysisPayload is the payload of the analysis endpoint. It extends the
// series with the sufficiency flags, the trend and recommendations.
type AnalysisPayload struct {
	Series
	HasSufficientData bool                 `json:"has_sufficient_data"`
	HasRealData       bool                 `json:"has_real_data"`
	RealDataDays      int                  `json:"real_data_days"`
	TotalDays         int                  `json:"total_days"`
	DataMetrics       stress.Coverage      `json:"data_metrics"`
	Trend             string               `json:"trend"`
	Recommendations   []string             `json:"recommendations"`
	Correlations      []stress.Correlation `json:"correlations"`
	Fallbacks         []models.Metric      `json:"fallbacks,omitempty"`
	Demo              bool                 `json:"demo"`
}

// NewAnalysisPayload shapes a into an AnalysisPayload.
func NewAnalysisPayload(a *Analysis) *AnalysisPayload {
	recs := stress.Recommendations(a.Days)
	if recs == nil {
		recs = []string{}
	}
	return &AnalysisPayload{
		Series:            NewSeries(a.Days),
		HasSufficientData: a.SufficientData(),
		HasRealData:       a.GenuineDays > 0,
		RealDataDays:      a.GenuineDays,
		TotalDays:         len(a.Days),
		DataMetrics:       a.Coverage,
		Trend:             stress.Trend(a.Days),
		Recommendations:   recs,
		Correlations:      stress.Correlations(a.Days),
		Fallbacks:         a.Fallbacks,
		Demo:              a.Demo,
	}
}

// CorrelationPayload lists stress correlations for the current window.
type CorrelationPayload struct {
	Dates        []string             `json:"dates"`
	Correlations []stress.Correlation `json:"correlations"`
	Demo         bool                 `json:"demo"`
}

// NewCorrelationPayload shapes a into a CorrelationPayload.
func NewCorrelationPayload(a *Analysis) *CorrelationPayload {
	dates := make([]string, len(a.Days))
	for i, d := range a.Days {
		dates[i] = d.Date.Format(dateLayout)
	}
	return &CorrelationPayload{
		Dates:        dates,
		Correlations: stress.Correlations(a.Days),
		Demo:         a.Demo,
	}
}

// PatternPayload is the hourly heart-rate profile plus sleep timing.
type PatternPayload struct {
	Hourly []stress.HourBucket `json:"hourly"`
	Sleep  stress.Timing       `json:"sleep"`
	Demo   bool                `json:"demo"`
}

// Message levels, matching the dashboard's alert classes.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Message is a one-line notice shown on the dashboard.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// DebugInfo reports raw fetch volumes on the dashboard.
type DebugInfo struct {
	stress.Coverage
	TimeRange string `json:"time_range"`
}

// Dashboard is the dashboard view model.
type Dashboard struct {
	Login              string                  `json:"login"`
	GoogleFitConnected bool                    `json:"google_fit_connected"`
	StressData         []DayPoint              `json:"stress_data"`
	LatestReport       *stress.Summary         `json:"latest_report"`
	StoredReport       *models.StressReportRow `json:"stored_report,omitempty"`
	HasSufficientData  bool                    `json:"has_sufficient_data"`
	ShowDemoWarning    bool                    `json:"show_demo_warning"`
	RealDataDays       int                     `json:"real_data_days"`
	TotalDays          int                     `json:"total_days"`
	HeartRateStatus    string                  `json:"heart_rate_status"`
	SleepStatus        string                  `json:"sleep_status"`
	ActivityStatus     string                  `json:"activity_status"`
	StepsCount         int                     `json:"steps_count"`
	DebugInfo          *DebugInfo              `json:"debug_info,omitempty"`
	Messages           []Message               `json:"messages"`
}

func newDashboard(login string) *Dashboard {
	return &Dashboard{
		Login:           login,
		StressData:      []DayPoint{},
		TotalDays:       stress.WindowDays,
		HeartRateStatus: stress.StatusMissing,
		SleepStatus:     stress.StatusMissing,
		ActivityStatus:  stress.StatusMissing,
		Messages:        []Message{},
	}
}

func (d *Dashboard) addMessage(level, text string) {
	d.Messages = append(d.Messages, Message{Level: level, Text: text})
}

const insufficientMessage = "Connected to Google Fit but insufficient health data found. " +
	"We need heart rate, sleep, and activity data for meaningful analysis."

func (d *Dashboard) fill(a *Analysis) {
	d.GoogleFitConnected = true
	d.DebugInfo = &DebugInfo{
		Coverage:  a.Coverage,
		TimeRange: fmt.Sprintf("%s to %s", a.Start.Format(dateLayout), a.End.Format(dateLayout)),
	}
	d.HeartRateStatus = a.Coverage.HeartRateStatus()
	d.SleepStatus = a.Coverage.SleepStatus()
	d.ActivityStatus = a.Coverage.ActivityStatus()
	d.StepsCount = a.Coverage.StepPoints

	for _, day := range a.Days {
		d.StressData = append(d.StressData, NewDayPoint(day))
	}
	d.RealDataDays = a.GenuineDays
	d.TotalDays = len(a.Days)
	d.HasSufficientData = a.SufficientData()
	d.ShowDemoWarning = d.RealDataDays > 0 && d.RealDataDays < d.TotalDays

	if s, ok := stress.Summarize(a.Days, true); ok {
		d.LatestReport = &s
	} else {
		d.addMessage(LevelInfo, insufficientMessage)
	}
	for _, m := range a.Fallbacks {
		d.addMessage(LevelWarning, fmt.Sprintf("Could not fetch %s from Google Fit; showing substitute values.", m))
	}
}
