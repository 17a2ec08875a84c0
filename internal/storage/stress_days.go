package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/claude/calmtrack/internal/models"
)

const stressDayColumns = 13

// UpsertStressDays writes one row per (user, date), replacing earlier values
// for the same day. Returns the number of rows written.
func (db *DB) UpsertStressDays(ctx context.Context, rows []models.StressDayRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO stress_days (user_id, date, heart_rate, sleep_duration, steps, calories,
stress_level, stress_category, has_real_data, heart_rate_source, sleep_source, steps_source, calories_source)
VALUES `
	args := make([]any, 0, len(rows)*stressDayColumns)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		placeholders := make([]string, stressDayColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*stressDayColumns+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		args = append(args, r.UserID, r.Date, r.HeartRate, r.SleepDuration, r.Steps, r.Calories,
			r.StressLevel, r.StressCategory, r.HasRealData,
			string(r.HeartRateSource), string(r.SleepSource), string(r.StepsSource), string(r.CaloriesSource))
	}

	query += strings.Join(valueStrings, ",") + `
ON CONFLICT (user_id, date) DO UPDATE SET
	heart_rate = EXCLUDED.heart_rate,
	sleep_duration = EXCLUDED.sleep_duration,
	steps = EXCLUDED.steps,
	calories = EXCLUDED.calories,
	stress_level = EXCLUDED.stress_level,
	stress_category = EXCLUDED.stress_category,
	has_real_data = EXCLUDED.has_real_data,
	heart_rate_source = EXCLUDED.heart_rate_source,
	sleep_source = EXCLUDED.sleep_source,
	steps_source = EXCLUDED.steps_source,
	calories_source = EXCLUDED.calories_source,
	updated_at = NOW()`

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upserting stress days: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryStressDays returns a user's stress days with start <= date < end,
// oldest first.
func (db *DB) QueryStressDays(ctx context.Context, userID int, start, end time.Time) ([]models.StressDayRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, date, heart_rate, sleep_duration, steps, calories, stress_level, stress_category,
		        has_real_data, heart_rate_source, sleep_source, steps_source, calories_source
		 FROM stress_days
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date ASC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying stress days: %w", err)
	}
	defer rows.Close()

	return scanStressDayRows(rows)
}

func scanStressDayRows(rows pgx.Rows) ([]models.StressDayRow, error) {
	var result []models.StressDayRow
	for rows.Next() {
		var r models.StressDayRow
		var hrSrc, sleepSrc, stepsSrc, caloriesSrc string
		if err := rows.Scan(&r.UserID, &r.Date, &r.HeartRate, &r.SleepDuration, &r.Steps, &r.Calories,
			&r.StressLevel, &r.StressCategory, &r.HasRealData,
			&hrSrc, &sleepSrc, &stepsSrc, &caloriesSrc); err != nil {
			return nil, fmt.Errorf("scanning stress day: %w", err)
		}
		r.HeartRateSource = models.Provenance(hrSrc)
		r.SleepSource = models.Provenance(sleepSrc)
		r.StepsSource = models.Provenance(stepsSrc)
		r.CaloriesSource = models.Provenance(caloriesSrc)
		result = append(result, r)
	}
	return result, rows.Err()
}
