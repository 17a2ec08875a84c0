package models

import (
	"time"

	"github.com/google/uuid"
)

// StressDayRow is a row ready for insertion into the stress_days table.
type StressDayRow struct {
	UserID          int        `json:"user_id"`
	Date            time.Time  `json:"date"`
	HeartRate       float64    `json:"heart_rate"`
	SleepDuration   float64    `json:"sleep_duration"`
	Steps           int        `json:"steps"`
	Calories        float64    `json:"calories"`
	StressLevel     float64    `json:"stress_level"`
	StressCategory  string     `json:"stress_category"`
	HasRealData     bool       `json:"has_real_data"`
	HeartRateSource Provenance `json:"heart_rate_source"`
	SleepSource     Provenance `json:"sleep_source"`
	StepsSource     Provenance `json:"steps_source"`
	CaloriesSource  Provenance `json:"calories_source"`
}

// StressReportRow is a row for the stress_reports table.
type StressReportRow struct {
	ID              uuid.UUID `json:"id"`
	UserID          int       `json:"user_id"`
	ReportDate      time.Time `json:"report_date"`
	AverageStress   float64   `json:"average_stress"`
	MaxStress       float64   `json:"max_stress"`
	MinStress       float64   `json:"min_stress"`
	StressTrend     string    `json:"stress_trend"`
	Recommendations []string  `json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`
}
