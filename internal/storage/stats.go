package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats summarises what is stored for one user.
type DataStats struct {
	TotalDays     int64      `json:"total_days"`
	GenuineDays   int64      `json:"genuine_days"`
	TotalReports  int64      `json:"total_reports"`
	TotalSyncs    int64      `json:"total_syncs"`
	EarliestDay   *time.Time `json:"earliest_day"`
	LatestDay     *time.Time `json:"latest_day"`
	AverageStress *float64   `json:"average_stress"`
	LastSync      *time.Time `json:"last_sync"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE has_real_data), MIN(date), MAX(date), AVG(stress_level)
		 FROM stress_days WHERE user_id = $1`, userID,
	).Scan(&stats.TotalDays, &stats.GenuineDays, &stats.EarliestDay, &stats.LatestDay, &stats.AverageStress)
	if err != nil {
		return nil, fmt.Errorf("summarising stress days: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stress_reports WHERE user_id = $1`, userID,
	).Scan(&stats.TotalReports)
	if err != nil {
		return nil, fmt.Errorf("counting reports: %w", err)
	}

	// Only successful runs count as a sync.
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM sync_logs WHERE user_id = $1 AND status = $2`,
		userID, SyncSuccess,
	).Scan(&stats.TotalSyncs, &stats.LastSync)
	if err != nil {
		return nil, fmt.Errorf("counting syncs: %w", err)
	}

	return stats, nil
}
