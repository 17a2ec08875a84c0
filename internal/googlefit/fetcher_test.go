package googlefit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/claude/calmtrack/internal/demo"
	"github.com/claude/calmtrack/internal/models"
)

type fakeSource struct {
	failSleep error
	failSteps error
}

func (f fakeSource) HeartRate(context.Context, time.Time, time.Time) ([]models.Sample, error) {
	return []models.Sample{{Metric: models.MetricHeartRate, Time: testStart, Value: 70, Provenance: models.Genuine}}, nil
}

func (f fakeSource) Sleep(context.Context, time.Time, time.Time) ([]models.SleepSession, error) {
	if f.failSleep != nil {
		return nil, f.failSleep
	}
	return []models.SleepSession{models.NewSleepSession(testStart, testStart.Add(7*time.Hour), "", models.Genuine)}, nil
}

func (f fakeSource) Steps(context.Context, time.Time, time.Time) ([]models.Sample, error) {
	if f.failSteps != nil {
		return nil, f.failSteps
	}
	return []models.Sample{{Metric: models.MetricSteps, Time: testStart, Value: 9000, Provenance: models.Genuine}}, nil
}

func (f fakeSource) Calories(context.Context, time.Time, time.Time) ([]models.Sample, error) {
	return []models.Sample{{Metric: models.MetricCalories, Time: testStart, Value: 2100, Provenance: models.Genuine}}, nil
}

type recordingObserver struct {
	mu        sync.Mutex
	fetches   map[models.Metric]error
	fallbacks []models.Metric
}

func (o *recordingObserver) ObserveFetch(m models.Metric, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fetches == nil {
		o.fetches = map[models.Metric]error{}
	}
	o.fetches[m] = err
}

func (o *recordingObserver) ObserveFallback(m models.Metric) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, m)
}

func TestFetchAllMetrics(t *testing.T) {
	obs := &recordingObserver{}
	f := NewFetcher(fakeSource{}, nil, obs, discardLogger())

	res, err := f.Fetch(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	counts := res.GenuineCounts()
	for _, m := range models.Metrics {
		if counts[m] != 1 {
			t.Errorf("%s: %d genuine samples, want 1", m, counts[m])
		}
	}
	if len(res.Errors) != 0 || len(res.Fallbacks) != 0 {
		t.Errorf("unexpected errors %v / fallbacks %v", res.Errors, res.Fallbacks)
	}
	if len(obs.fetches) != 4 {
		t.Errorf("observed %d fetches, want 4", len(obs.fetches))
	}
}

// TestFetchFailureWithoutFallback verifies a failed metric comes back empty
// and is reported, without failing the others.
func TestFetchFailureWithoutFallback(t *testing.T) {
	f := NewFetcher(fakeSource{failSleep: &FetchError{Metric: models.MetricSleep, Status: 500, Message: "boom"}}, nil, nil, discardLogger())

	res, err := f.Fetch(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Sleep) != 0 {
		t.Errorf("sleep = %v, want empty", res.Sleep)
	}
	if len(res.HeartRate) != 1 || len(res.Steps) != 1 {
		t.Error("healthy metrics missing")
	}
	if len(res.Errors) != 1 || res.Errors[0].Status != 500 {
		t.Errorf("errors = %+v", res.Errors)
	}
}

// TestFetchFailureWithFallback verifies failed metrics are replaced by
// substitute samples while healthy metrics stay genuine.
func TestFetchFailureWithFallback(t *testing.T) {
	obs := &recordingObserver{}
	f := NewFetcher(fakeSource{failSteps: errors.New("network down")}, demo.New(1), obs, discardLogger())

	res, err := f.Fetch(context.Background(), testStart, testEnd)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Steps) == 0 {
		t.Fatal("expected substitute steps")
	}
	for _, s := range res.Steps {
		if s.Provenance != models.Substitute {
			t.Fatalf("step sample %+v not substitute", s)
		}
	}
	if len(res.Fallbacks) != 1 || res.Fallbacks[0] != models.MetricSteps {
		t.Errorf("fallbacks = %v", res.Fallbacks)
	}
	if len(res.Errors) != 1 || res.Errors[0].Metric != models.MetricSteps {
		t.Errorf("errors = %+v", res.Errors)
	}
	if len(obs.fallbacks) != 1 || obs.fetches[models.MetricSteps] == nil {
		t.Errorf("observer = %+v", obs)
	}
	if res.HeartRate[0].Provenance != models.Genuine {
		t.Error("heart rate should stay genuine")
	}
}

func TestFetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFetcher(fakeSource{}, nil, nil, discardLogger())
	if _, err := f.Fetch(ctx, testStart, testEnd); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch error = %v, want context.Canceled", err)
	}
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
	saves  int
}

func (m *memTokens) Token(_ context.Context, login string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[login], nil
}

func (m *memTokens) SaveToken(_ context.Context, login string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]*oauth2.Token{}
	}
	m.tokens[login] = tok
	m.saves++
	return nil
}

func (m *memTokens) DeleteToken(_ context.Context, login string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, login)
	return nil
}

func TestConnectNotConnected(t *testing.T) {
	c := NewConnector(ConnectorOptions{
		OAuth:  OAuthConfig("id", "secret", "http://localhost/cb"),
		Store:  &memTokens{},
		Logger: discardLogger(),
	})
	if _, err := c.Connect(context.Background(), "alice@example.com"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Connect error = %v, want ErrNotConnected", err)
	}
	ok, err := c.Connected(context.Background(), "alice@example.com")
	if err != nil || ok {
		t.Errorf("Connected = %v, %v", ok, err)
	}
}

func TestConnectAndDisconnect(t *testing.T) {
	store := &memTokens{}
	login := "alice@example.com"
	_ = store.SaveToken(context.Background(), login, &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)})

	c := NewConnector(ConnectorOptions{
		OAuth:             OAuthConfig("id", "secret", "http://localhost/cb"),
		Store:             store,
		Logger:            discardLogger(),
		RequestsPerSecond: 5,
	})
	f, err := c.Connect(context.Background(), login)
	if err != nil || f == nil {
		t.Fatalf("Connect = %v, %v", f, err)
	}

	if err := c.Disconnect(context.Background(), login); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if ok, _ := c.Connected(context.Background(), login); ok {
		t.Error("still connected after Disconnect")
	}
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

// TestSavingTokenSource verifies only changed tokens are persisted.
func TestSavingTokenSource(t *testing.T) {
	first := &oauth2.Token{AccessToken: "a"}
	var saved []*oauth2.Token
	ts := &savingTokenSource{
		base: staticSource{tok: first},
		last: first,
		save: func(tok *oauth2.Token) error { saved = append(saved, tok); return nil },
		log:  discardLogger(),
	}

	if _, err := ts.Token(); err != nil {
		t.Fatal(err)
	}
	if len(saved) != 0 {
		t.Fatalf("unchanged token saved %d times", len(saved))
	}

	ts.base = staticSource{tok: &oauth2.Token{AccessToken: "b"}}
	if _, err := ts.Token(); err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].AccessToken != "b" {
		t.Errorf("saved = %+v, want refreshed token", saved)
	}
}
