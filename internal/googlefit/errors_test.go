package googlefit

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/claude/calmtrack/internal/models"
)

func TestFetchErrorFromGoogleAPI(t *testing.T) {
	upstream := &googleapi.Error{Code: 429, Message: "rate limit exceeded"}
	fe := fetchError(models.MetricHeartRate, fmt.Errorf("do: %w", upstream))

	if fe.Status != 429 || fe.Message != "rate limit exceeded" {
		t.Errorf("FetchError = %+v", fe)
	}
	if !errors.Is(fe, upstream) {
		t.Error("FetchError should unwrap to the upstream error")
	}
	if got, want := fe.Error(), "google fit heart_rate: status 429: rate limit exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFetchErrorPlain(t *testing.T) {
	fe := fetchError(models.MetricSleep, errors.New("dial tcp: timeout"))
	if fe.Status != 0 {
		t.Errorf("status = %d, want 0", fe.Status)
	}
	if got, want := fe.Error(), "google fit sleep: dial tcp: timeout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if statusOf(fe) != 0 {
		t.Error("statusOf plain error should be 0")
	}
}
