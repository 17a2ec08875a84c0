package googlefit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/option"

	"github.com/claude/calmtrack/internal/models"
)

const (
	userMe        = "me"
	dayMillis     = int64(24 * time.Hour / time.Millisecond)
	activitySleep = 72
)

// aggregateSource names a merged Google Fit data stream.
type aggregateSource struct {
	metric   models.Metric
	dataType string
	sourceID string
	intValue bool
}

var (
	heartRateSource = aggregateSource{
		metric:   models.MetricHeartRate,
		dataType: "com.google.heart_rate.bpm",
		sourceID: "derived:com.google.heart_rate.bpm:com.google.android.gms:merge_heart_rate_bpm",
	}
	stepsSource = aggregateSource{
		metric:   models.MetricSteps,
		dataType: "com.google.step_count.delta",
		sourceID: "derived:com.google.step_count.delta:com.google.android.gms:merge_step_deltas",
		intValue: true,
	}
	caloriesSource = aggregateSource{
		metric:   models.MetricCalories,
		dataType: "com.google.calories.expended",
		sourceID: "derived:com.google.calories.expended:com.google.android.gms:merge_calories_expended",
	}
)

// Client reads one user's data from the Fitness REST API.
type Client struct {
	svc     *fitness.Service
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient creates a Client. A nil limiter disables rate limiting. opts
// must carry credentials, typically option.WithTokenSource.
func NewClient(ctx context.Context, log *slog.Logger, limiter *rate.Limiter, opts ...option.ClientOption) (*Client, error) {
	svc, err := fitness.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating fitness service: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{svc: svc, limiter: limiter, log: log}, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// HeartRate returns daily heart-rate averages in [start, end).
func (c *Client) HeartRate(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	return c.aggregate(ctx, heartRateSource, start, end)
}

// Steps returns daily step totals in [start, end).
func (c *Client) Steps(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	return c.aggregate(ctx, stepsSource, start, end)
}

// Calories returns daily calories expended in [start, end).
func (c *Client) Calories(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	return c.aggregate(ctx, caloriesSource, start, end)
}

func (c *Client) aggregate(ctx context.Context, src aggregateSource, start, end time.Time) ([]models.Sample, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fetchError(src.metric, err)
	}

	req := &fitness.AggregateRequest{
		AggregateBy: []*fitness.AggregateBy{{
			DataTypeName: src.dataType,
			DataSourceId: src.sourceID,
		}},
		BucketByTime:    &fitness.BucketByTime{DurationMillis: dayMillis},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}

	resp, err := c.svc.Users.Dataset.Aggregate(userMe, req).Context(ctx).Do()
	if err != nil {
		return nil, fetchError(src.metric, err)
	}

	samples := parseAggregate(src, resp)
	c.log.Debug("google fit aggregate", "metric", src.metric, "buckets", len(resp.Bucket), "points", len(samples))
	return samples, nil
}

// parseAggregate flattens bucketed points into genuine samples, taking the
// first value of each point. Points without a value are skipped.
func parseAggregate(src aggregateSource, resp *fitness.AggregateResponse) []models.Sample {
	var out []models.Sample
	for _, bucket := range resp.Bucket {
		for _, ds := range bucket.Dataset {
			for _, p := range ds.Point {
				if len(p.Value) == 0 || p.Value[0] == nil {
					continue
				}
				v := p.Value[0].FpVal
				if src.intValue {
					v = float64(p.Value[0].IntVal)
				}
				out = append(out, models.Sample{
					Metric:     src.metric,
					Time:       time.Unix(0, p.StartTimeNanos),
					Value:      v,
					Provenance: models.Genuine,
				})
			}
		}
	}
	return out
}

// Sleep returns sleep sessions overlapping [start, end). Some accounts
// reject the activity type filter with 400; the request is then retried
// unfiltered and non-sleep sessions are dropped locally.
func (c *Client) Sleep(ctx context.Context, start, end time.Time) ([]models.SleepSession, error) {
	sessions, err := c.listSessions(ctx, start, end, true)
	if err != nil && statusOf(err) == http.StatusBadRequest {
		c.log.Warn("google fit sleep filter rejected, retrying unfiltered")
		sessions, err = c.listSessions(ctx, start, end, false)
	}
	if err != nil {
		return nil, fetchError(models.MetricSleep, err)
	}

	out := parseSessions(sessions)
	c.log.Debug("google fit sessions", "metric", models.MetricSleep, "sessions", len(out))
	return out, nil
}

func (c *Client) listSessions(ctx context.Context, start, end time.Time, filter bool) ([]*fitness.Session, error) {
	var all []*fitness.Session
	pageToken := ""
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		call := c.svc.Users.Sessions.List(userMe).
			StartTime(start.UTC().Format(time.RFC3339Nano)).
			EndTime(end.UTC().Format(time.RFC3339Nano)).
			Context(ctx)
		if filter {
			call = call.ActivityType(activitySleep)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Session...)
		if resp.NextPageToken == "" || resp.NextPageToken == pageToken {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

// parseSessions converts sleep sessions into genuine samples. Sessions with
// a known non-sleep activity type, an awake stage name or a non-positive
// span are dropped.
func parseSessions(sessions []*fitness.Session) []models.SleepSession {
	var out []models.SleepSession
	for _, s := range sessions {
		if s == nil || (s.ActivityType != 0 && s.ActivityType != activitySleep) {
			continue
		}
		start := time.UnixMilli(s.StartTimeMillis)
		end := time.UnixMilli(s.EndTimeMillis)
		if !end.After(start) {
			continue
		}
		stage, ok := models.NormalizeSleepStage(s.Name)
		if !ok {
			stage = models.SleepStageAsleep
		}
		if !models.IsAsleep(stage) {
			continue
		}
		out = append(out, models.NewSleepSession(start, end, stage, models.Genuine))
	}
	return out
}
