package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/calmtrack/internal/models"
	"github.com/claude/calmtrack/internal/storage"
	"github.com/claude/calmtrack/internal/stress"
)

// SyncResult is the response of a sync run.
type SyncResult struct {
	Success           bool            `json:"success"`
	ProcessedRecords  int             `json:"processed_records"`
	RealDataDays      int             `json:"real_data_days"`
	HasSufficientData bool            `json:"has_sufficient_data"`
	Message           string          `json:"message"`
	DataAvailable     map[string]bool `json:"data_available"`
	DaysStored        int64           `json:"days_stored"`
	ReportID          *uuid.UUID      `json:"report_id,omitempty"`
	Fallbacks         []models.Metric `json:"fallbacks,omitempty"`
}

// Sync pulls a fresh 7-day analysis for login, bypassing the cache, and
// persists genuine days plus a report when storage is configured. It
// returns googlefit.ErrNotConnected when login has no token.
func (s *Service) Sync(ctx context.Context, login, displayName string) (*SyncResult, error) {
	began := s.now()
	res, err := s.sync(ctx, login, displayName, began)
	if s.obs != nil {
		s.obs.ObserveSync(err)
	}
	return res, err
}

func (s *Service) sync(ctx context.Context, login, displayName string, began time.Time) (*SyncResult, error) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, login); err != nil {
			s.log.Warn("cache invalidation failed", "login", login, "error", err)
		}
	}

	a, err := s.analyze(ctx, login, APILookbackDays, false)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{
		Success:           true,
		ProcessedRecords:  len(a.Days),
		RealDataDays:      a.GenuineDays,
		HasSufficientData: a.SufficientData(),
		Message:           fmt.Sprintf("Successfully synced %d days of data (%d with real data)", len(a.Days), a.GenuineDays),
		DataAvailable: map[string]bool{
			string(models.MetricHeartRate): a.Coverage.HeartRatePoints > 0,
			string(models.MetricSleep):     a.Coverage.SleepSessions > 0,
			string(models.MetricSteps):     a.Coverage.StepPoints > 0,
			string(models.MetricCalories):  a.Coverage.CaloriePoints > 0,
		},
		Fallbacks: a.Fallbacks,
	}

	if s.store != nil {
		if err := s.persist(ctx, a, displayName, began, res); err != nil {
			return nil, err
		}
	}

	if s.marker != nil {
		if err := s.marker.MarkSynced(ctx, login, s.now()); err != nil {
			s.log.Warn("recording sync time", "login", login, "error", err)
		}
	}

	s.log.Info("sync complete", "login", login, "days", res.ProcessedRecords,
		"genuine_days", res.RealDataDays, "stored", res.DaysStored, "fallbacks", len(res.Fallbacks))
	return res, nil
}

type syncMetadata struct {
	Fallbacks []models.Metric `json:"fallbacks,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
	Window    [2]string       `json:"window"`
}

func (s *Service) persist(ctx context.Context, a *Analysis, displayName string, began time.Time, res *SyncResult) error {
	userID, err := s.store.GetOrCreateUser(ctx, a.Login, displayName)
	if err != nil {
		return err
	}

	entry := storage.SyncLog{
		UserID:          userID,
		Status:          storage.SyncRunning,
		DaysProcessed:   len(a.Days),
		GenuineDays:     a.GenuineDays,
		HeartRatePoints: a.Coverage.HeartRatePoints,
		SleepSessions:   a.Coverage.SleepSessions,
		StepPoints:      a.Coverage.StepPoints,
		CaloriePoints:   a.Coverage.CaloriePoints,
	}
	for _, m := range a.Fallbacks {
		entry.Fallbacks = append(entry.Fallbacks, string(m))
	}
	logID, err := s.store.InsertSyncLog(ctx, entry)
	if err != nil {
		return err
	}

	meta := syncMetadata{Fallbacks: a.Fallbacks}
	for _, fe := range a.Errors {
		meta.Errors = append(meta.Errors, fe.Error())
	}
	if len(a.Days) > 0 {
		meta.Window = [2]string{
			a.Days[0].Date.Format(dateLayout),
			a.Days[len(a.Days)-1].Date.Format(dateLayout),
		}
	}
	if m, err := storage.EncodeMetadata(meta); err == nil {
		entry.Metadata = m
	}

	storeErr := s.storeAnalysis(ctx, userID, a, res)

	ms := int(s.now().Sub(began).Milliseconds())
	entry.DurationMs = &ms
	entry.Status = storage.SyncSuccess
	if storeErr != nil {
		entry.Status = storage.SyncError
		msg := storeErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := s.store.UpdateSyncLog(ctx, logID, entry); err != nil {
		s.log.Warn("updating sync log", "id", logID, "error", err)
	}
	return storeErr
}

// storeAnalysis writes the genuine days and, when any exist, today's report.
// Days without genuine data are skipped so defaults never overwrite stored
// readings.
func (s *Service) storeAnalysis(ctx context.Context, userID int, a *Analysis, res *SyncResult) error {
	rows := DayRows(userID, a.Days)
	if len(rows) == 0 {
		return nil
	}
	n, err := s.store.UpsertStressDays(ctx, rows)
	if err != nil {
		return err
	}
	res.DaysStored = n

	report, ok := NewReport(userID, a.Days)
	if !ok {
		return nil
	}
	id, err := s.store.UpsertStressReport(ctx, report)
	if err != nil {
		return err
	}
	res.ReportID = &id
	return nil
}

// DayRows converts the genuine days into stress_days rows.
func DayRows(userID int, days []stress.DailyAggregate) []models.StressDayRow {
	var rows []models.StressDayRow
	for _, d := range days {
		if !d.HasGenuineData {
			continue
		}
		rows = append(rows, models.StressDayRow{
			UserID:          userID,
			Date:            d.Date,
			HeartRate:       stress.Round1(d.HeartRate.Value),
			SleepDuration:   stress.Round1(d.Sleep.Value),
			Steps:           d.Steps.Value,
			Calories:        stress.Round1(d.Calories.Value),
			StressLevel:     stress.Round1(d.Score),
			StressCategory:  string(d.Category),
			HasRealData:     true,
			HeartRateSource: d.HeartRate.Provenance,
			SleepSource:     d.Sleep.Provenance,
			StepsSource:     d.Steps.Provenance,
			CaloriesSource:  d.Calories.Provenance,
		})
	}
	return rows
}

// NewReport summarises the genuine days into a report dated on the last
// day of the window. ok is false when no day has genuine data.
func NewReport(userID int, days []stress.DailyAggregate) (models.StressReportRow, bool) {
	sum, ok := stress.Summarize(days, true)
	if !ok {
		return models.StressReportRow{}, false
	}
	var genuine []stress.DailyAggregate
	for _, d := range days {
		if d.HasGenuineData {
			genuine = append(genuine, d)
		}
	}
	return models.StressReportRow{
		UserID:          userID,
		ReportDate:      days[len(days)-1].Date,
		AverageStress:   sum.AverageStress,
		MaxStress:       sum.MaxStress,
		MinStress:       sum.MinStress,
		StressTrend:     stress.Trend(genuine),
		Recommendations: stress.Recommendations(genuine),
	}, true
}
