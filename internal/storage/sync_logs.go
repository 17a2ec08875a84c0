package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SyncLog records one Google Fit sync run.
type SyncLog struct {
	ID              int64            `json:"id"`
	UserID          int              `json:"user_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Status          string           `json:"status"`
	DaysProcessed   int              `json:"days_processed"`
	GenuineDays     int              `json:"genuine_days"`
	HeartRatePoints int              `json:"heart_rate_points"`
	SleepSessions   int              `json:"sleep_sessions"`
	StepPoints      int              `json:"step_points"`
	CaloriePoints   int              `json:"calorie_points"`
	Fallbacks       []string         `json:"fallbacks"`
	DurationMs      *int             `json:"duration_ms"`
	ErrorMessage    *string          `json:"error_message"`
	Metadata        *json.RawMessage `json:"metadata"`
}

// Sync log statuses.
const (
	SyncRunning = "running"
	SyncSuccess = "success"
	SyncError   = "error"
)

// EncodeMetadata marshals v for the metadata column.
func EncodeMetadata(v any) (*json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding sync metadata: %w", err)
	}
	raw := json.RawMessage(data)
	return &raw, nil
}

// InsertSyncLog creates a sync log entry and returns its ID.
func (db *DB) InsertSyncLog(ctx context.Context, log SyncLog) (int64, error) {
	if log.Fallbacks == nil {
		log.Fallbacks = []string{}
	}
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO sync_logs (user_id, status, days_processed, genuine_days, heart_rate_points,
		 sleep_sessions, step_points, calorie_points, fallbacks, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING id`,
		log.UserID, log.Status, log.DaysProcessed, log.GenuineDays, log.HeartRatePoints,
		log.SleepSessions, log.StepPoints, log.CaloriePoints, log.Fallbacks,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting sync log: %w", err)
	}
	return id, nil
}

// UpdateSyncLog finishes a running sync log entry.
func (db *DB) UpdateSyncLog(ctx context.Context, id int64, log SyncLog) error {
	if log.Fallbacks == nil {
		log.Fallbacks = []string{}
	}
	_, err := db.Pool.Exec(ctx,
		`UPDATE sync_logs SET
		 status = $2, days_processed = $3, genuine_days = $4, heart_rate_points = $5,
		 sleep_sessions = $6, step_points = $7, calorie_points = $8, fallbacks = $9,
		 duration_ms = $10, error_message = $11, metadata = $12
		 WHERE id = $1`,
		id, log.Status, log.DaysProcessed, log.GenuineDays, log.HeartRatePoints,
		log.SleepSessions, log.StepPoints, log.CaloriePoints, log.Fallbacks,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating sync log %d: %w", id, err)
	}
	return nil
}

// QuerySyncLogs returns a user's most recent sync logs, newest first.
func (db *DB) QuerySyncLogs(ctx context.Context, userID, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, status, days_processed, genuine_days, heart_rate_points,
		 sleep_sessions, step_points, calorie_points, fallbacks, duration_ms, error_message, metadata
		 FROM sync_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync logs: %w", err)
	}
	defer rows.Close()

	var result []SyncLog
	for rows.Next() {
		var l SyncLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Status, &l.DaysProcessed, &l.GenuineDays,
			&l.HeartRatePoints, &l.SleepSessions, &l.StepPoints, &l.CaloriePoints, &l.Fallbacks,
			&l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning sync log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
