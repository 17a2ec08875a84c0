package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/calmtrack/internal/models"
)

// ErrNoReport is returned when a user has no stored report.
var ErrNoReport = errors.New("no stress report")

// UpsertStressReport stores r, replacing any report for the same user and
// date. A zero ID is assigned. Returns the stored ID.
func (db *DB) UpsertStressReport(ctx context.Context, r models.StressReportRow) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}

	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO stress_reports (id, user_id, report_date, average_stress, max_stress, min_stress,
		 stress_trend, recommendations)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (user_id, report_date) DO UPDATE SET
		   average_stress = EXCLUDED.average_stress,
		   max_stress = EXCLUDED.max_stress,
		   min_stress = EXCLUDED.min_stress,
		   stress_trend = EXCLUDED.stress_trend,
		   recommendations = EXCLUDED.recommendations,
		   created_at = NOW()
		 RETURNING id`,
		r.ID, r.UserID, r.ReportDate, r.AverageStress, r.MaxStress, r.MinStress,
		r.StressTrend, r.Recommendations,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting stress report: %w", err)
	}
	return id, nil
}

// QueryStressReports returns a user's most recent reports, newest first.
func (db *DB) QueryStressReports(ctx context.Context, userID, limit int) ([]models.StressReportRow, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, report_date, average_stress, max_stress, min_stress,
		        stress_trend, recommendations, created_at
		 FROM stress_reports
		 WHERE user_id = $1
		 ORDER BY report_date DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stress reports: %w", err)
	}
	defer rows.Close()

	var result []models.StressReportRow
	for rows.Next() {
		var r models.StressReportRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.ReportDate, &r.AverageStress, &r.MaxStress, &r.MinStress,
			&r.StressTrend, &r.Recommendations, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning stress report: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LatestStressReport returns the newest report or ErrNoReport.
func (db *DB) LatestStressReport(ctx context.Context, userID int) (*models.StressReportRow, error) {
	var r models.StressReportRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, report_date, average_stress, max_stress, min_stress,
		        stress_trend, recommendations, created_at
		 FROM stress_reports
		 WHERE user_id = $1
		 ORDER BY report_date DESC
		 LIMIT 1`, userID,
	).Scan(&r.ID, &r.UserID, &r.ReportDate, &r.AverageStress, &r.MaxStress, &r.MinStress,
		&r.StressTrend, &r.Recommendations, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest stress report: %w", err)
	}
	return &r, nil
}
