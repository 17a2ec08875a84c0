package googlefit

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"github.com/claude/calmtrack/internal/models"
)

// ErrNotConnected is returned when a login has no stored Google Fit token.
var ErrNotConnected = errors.New("google fit not connected")

// FetchError describes a failed request for one metric.
type FetchError struct {
	Metric  models.Metric `json:"metric"`
	Status  int           `json:"status,omitempty"`
	Message string        `json:"message"`
	Err     error         `json:"-"`
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("google fit %s: status %d: %s", e.Metric, e.Status, e.Message)
	}
	return fmt.Sprintf("google fit %s: %s", e.Metric, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// fetchError wraps err for metric m, lifting the HTTP status out of a
// googleapi.Error when present.
func fetchError(m models.Metric, err error) *FetchError {
	fe := &FetchError{Metric: m, Message: err.Error(), Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		fe.Status = gerr.Code
		if gerr.Message != "" {
			fe.Message = gerr.Message
		}
	}
	return fe
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
