package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/calmtrack/internal/models"
	"github.com/claude/calmtrack/internal/stress"
)

// testDB connects to CALMTRACK_TEST_DSN and migrates it. Tests are skipped
// when the variable is unset.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("CALMTRACK_TEST_DSN")
	if dsn == "" {
		t.Skip("CALMTRACK_TEST_DSN not set")
	}
	version, err := RunMigrations(dsn, "../../migrations")
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if version < 1 {
		t.Fatalf("schema version = %d, want >= 1", version)
	}
	db, err := New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func testUser(t *testing.T, db *DB) int {
	t.Helper()
	login := "test-" + uuid.NewString() + "@example.com"
	id, err := db.GetOrCreateUser(context.Background(), login, "Test User")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", id)
	})
	return id
}

func TestGetOrCreateUserIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	login := "idem-" + uuid.NewString()

	a, err := db.GetOrCreateUser(ctx, login, "A")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _, _ = db.Pool.Exec(ctx, "DELETE FROM users WHERE id = $1", a) })
	b, err := db.GetOrCreateUser(ctx, login, "A renamed")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("ids differ: %d vs %d", a, b)
	}
	if id, err := db.UserID(ctx, login); err != nil || id != a {
		t.Errorf("UserID = %d, %v", id, err)
	}
	if _, err := db.UserID(ctx, "nobody-"+uuid.NewString()); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("UserID(unknown) err = %v, want ErrUnknownUser", err)
	}
}

func TestStressDaysUpsertAndQuery(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	uid := testUser(t, db)

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	row := models.StressDayRow{
		UserID: uid, Date: day, HeartRate: 72, SleepDuration: 7, Steps: 8000, Calories: 2100,
		StressLevel: 40, StressCategory: string(stress.CategoryModerate), HasRealData: true,
		HeartRateSource: models.Genuine, SleepSource: models.Genuine,
		StepsSource: models.Substitute, CaloriesSource: models.Substitute,
	}
	next := row
	next.Date = day.AddDate(0, 0, 1)
	next.StressLevel, next.StressCategory = 60, string(stress.CategoryHigh)
	if _, err := db.UpsertStressDays(ctx, []models.StressDayRow{row, next}); err != nil {
		t.Fatal(err)
	}

	row.StressLevel = 45
	if _, err := db.UpsertStressDays(ctx, []models.StressDayRow{row}); err != nil {
		t.Fatal(err)
	}

	rows, err := db.QueryStressDays(ctx, uid, day, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].StressLevel != 45 {
		t.Errorf("stress_level = %v, want 45 after upsert", rows[0].StressLevel)
	}
	if rows[0].StepsSource != models.Substitute {
		t.Errorf("steps_source = %q", rows[0].StepsSource)
	}
}

func TestStressReports(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	uid := testUser(t, db)

	if _, err := db.LatestStressReport(ctx, uid); !errors.Is(err, ErrNoReport) {
		t.Fatalf("LatestStressReport(empty) err = %v, want ErrNoReport", err)
	}

	for i, avg := range []float64{30, 50} {
		_, err := db.UpsertStressReport(ctx, models.StressReportRow{
			UserID: uid, ReportDate: time.Date(2024, 3, 3+7*i, 0, 0, 0, 0, time.UTC),
			AverageStress: avg, MaxStress: avg + 10, MinStress: avg - 10,
			StressTrend: stress.TrendStable, Recommendations: []string{"Sleep more"},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	latest, err := db.LatestStressReport(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if latest.AverageStress != 50 {
		t.Errorf("latest average = %v, want 50", latest.AverageStress)
	}
	reports, err := db.QueryStressReports(ctx, uid, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].ID != latest.ID {
		t.Errorf("reports = %+v", reports)
	}
}

func TestSyncLogsAndStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	uid := testUser(t, db)

	id, err := db.InsertSyncLog(ctx, SyncLog{UserID: uid, Status: SyncRunning})
	if err != nil {
		t.Fatal(err)
	}
	ms := 120
	meta, err := EncodeMetadata(map[string]any{"window": "7d"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateSyncLog(ctx, id, SyncLog{Status: SyncSuccess, DaysProcessed: 7, GenuineDays: 3, DurationMs: &ms, Metadata: meta}); err != nil {
		t.Fatal(err)
	}

	logs, err := db.QuerySyncLogs(ctx, uid, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Status != SyncSuccess || logs[0].GenuineDays != 3 {
		t.Fatalf("logs = %+v", logs)
	}

	stats, err := db.GetDataStats(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSyncs != 1 || stats.LastSync == nil {
		t.Errorf("stats = %+v", stats)
	}
}
