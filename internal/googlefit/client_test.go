package googlefit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/option"

	"github.com/claude/calmtrack/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient points a Client at an httptest server standing in for the
// Fitness API.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), discardLogger(), nil,
		option.WithEndpoint(srv.URL+"/fitness/v1/users/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

var (
	testStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
)

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// TestHeartRateAggregate verifies the aggregate request targets the merged
// heart-rate stream and the first value of each point is used.
func TestHeartRateAggregate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/me/dataset:aggregate") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req fitness.AggregateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			return
		}
		if len(req.AggregateBy) != 1 || req.AggregateBy[0].DataSourceId != heartRateSource.sourceID {
			t.Errorf("aggregateBy = %+v", req.AggregateBy)
		}
		if req.BucketByTime == nil || req.BucketByTime.DurationMillis != 86400000 {
			t.Errorf("bucketByTime = %+v, want one day", req.BucketByTime)
		}
		if req.StartTimeMillis != testStart.UnixMilli() || req.EndTimeMillis != testEnd.UnixMilli() {
			t.Errorf("range = %d..%d", req.StartTimeMillis, req.EndTimeMillis)
		}
		writeRaw(w, http.StatusOK, `{"bucket":[
			{"dataset":[{"point":[
				{"startTimeNanos":"1710057600000000000","value":[{"fpVal":72.5},{"fpVal":95},{"fpVal":55}]}
			]}]},
			{"dataset":[{"point":[
				{"startTimeNanos":"1710144000000000000","value":[]}
			]}]}
		]}`)
	})

	got, err := c.HeartRate(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("HeartRate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
	s := got[0]
	if s.Value != 72.5 || s.Provenance != models.Genuine || s.Metric != models.MetricHeartRate {
		t.Errorf("sample = %+v", s)
	}
	if !s.Time.Equal(time.Unix(1710057600, 0)) {
		t.Errorf("time = %v", s.Time)
	}
}

// TestStepsUseIntValue verifies step points are read from intVal.
func TestStepsUseIntValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, http.StatusOK, `{"bucket":[{"dataset":[{"point":[
			{"startTimeNanos":"1710057600000000000","value":[{"intVal":8421}]}
		]}]}]}`)
	})

	got, err := c.Steps(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(got) != 1 || got[0].Value != 8421 || got[0].Metric != models.MetricSteps {
		t.Errorf("steps = %+v", got)
	}
}

// TestAggregateErrorStatus verifies HTTP failures surface as FetchError
// with the upstream status.
func TestAggregateErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, http.StatusForbidden, `{"error":{"code":403,"message":"insufficient permission"}}`)
	})

	_, err := c.Calories(context.Background(), testStart, testEnd)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FetchError", err)
	}
	if fe.Metric != models.MetricCalories || fe.Status != http.StatusForbidden {
		t.Errorf("FetchError = %+v", fe)
	}
	if fe.Message != "insufficient permission" {
		t.Errorf("message = %q", fe.Message)
	}
}

// TestSleepRetriesWithoutActivityType verifies a 400 on the filtered session
// list is retried unfiltered.
func TestSleepRetriesWithoutActivityType(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/me/sessions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("startTime") == "" || r.URL.Query().Get("endTime") == "" {
			t.Errorf("missing time range in %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("activityType") != "" {
			writeRaw(w, http.StatusBadRequest, `{"error":{"code":400,"message":"bad activity type"}}`)
			return
		}
		writeRaw(w, http.StatusOK, `{"session":[
			{"id":"a","name":"Deep sleep","startTimeMillis":"1710025200000","endTimeMillis":"1710054000000"},
			{"id":"b","name":"nap","startTimeMillis":"1710054000000","endTimeMillis":"1710054000000"}
		]}`)
	})

	got, err := c.Sleep(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if len(got) != 1 {
		t.Fatalf("got %d sessions, want 1", len(got))
	}
	if got[0].DurationHr != 8 || got[0].Stage != models.SleepStageDeep || got[0].Provenance != models.Genuine {
		t.Errorf("session = %+v", got[0])
	}
}

// TestSleepPaginates verifies every page of sessions is collected.
func TestSleepPaginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			writeRaw(w, http.StatusOK, `{"session":[{"startTimeMillis":"1710025200000","endTimeMillis":"1710054000000"}],"nextPageToken":"p2"}`)
			return
		}
		writeRaw(w, http.StatusOK, `{"session":[{"startTimeMillis":"1710111600000","endTimeMillis":"1710136800000"}]}`)
	})

	got, err := c.Sleep(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[1].Stage != models.SleepStageAsleep {
		t.Errorf("unnamed session stage = %q, want %q", got[1].Stage, models.SleepStageAsleep)
	}
}

func TestParseSessionsDropsOtherActivities(t *testing.T) {
	got := parseSessions([]*fitness.Session{
		{Name: "Morning run", ActivityType: 8, StartTimeMillis: 1, EndTimeMillis: 3600001},
		{Name: "REM", ActivityType: activitySleep, StartTimeMillis: 1, EndTimeMillis: 3600001},
		{Name: "Awake", ActivityType: activitySleep, StartTimeMillis: 3600001, EndTimeMillis: 3900001},
		nil,
	})
	if len(got) != 1 || got[0].Stage != models.SleepStageREM {
		t.Errorf("parseSessions = %+v", got)
	}
}

func TestAuthURL(t *testing.T) {
	cfg := OAuthConfig("id", "secret", "http://localhost/cb")
	u := AuthURL(cfg, "xyz")
	for _, want := range []string{"access_type=offline", "prompt=consent", "state=xyz", "fitness.sleep.read"} {
		if !strings.Contains(u, want) {
			t.Errorf("auth URL %q missing %q", u, want)
		}
	}
	if a, b := NewState(), NewState(); a == b || a == "" {
		t.Errorf("NewState not random: %q %q", a, b)
	}
}
