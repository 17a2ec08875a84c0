package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/claude/calmtrack/internal/insights"
	"github.com/claude/calmtrack/internal/models"
)

const apiPrefix = "/stress-analysis/api"

// HTTPClient implements DataSource by calling the CalmTrack REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but the
// server holds the Google Fit tokens. The server identifies the caller
// itself, so the login argument is ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

// StatusError reports a non-200 response from the server.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.Path, e.Code, e.Body)
}

func intParam(key string, v int) url.Values {
	p := url.Values{}
	if v > 0 {
		p.Set(key, strconv.Itoa(v))
	}
	return p
}

func (c *HTTPClient) Analysis(ctx context.Context, _ string) (*insights.AnalysisPayload, error) {
	var p insights.AnalysisPayload
	if err := c.get(ctx, "/analysis/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) Correlations(ctx context.Context, _ string) (*insights.CorrelationPayload, error) {
	var p insights.CorrelationPayload
	if err := c.get(ctx, "/correlations/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) History(ctx context.Context, _ string, days int) ([]models.StressDayRow, error) {
	var rows []models.StressDayRow
	if err := c.get(ctx, "/history/", intParam("days", days), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) Reports(ctx context.Context, _ string, limit int) ([]models.StressReportRow, error) {
	var reports []models.StressReportRow
	if err := c.get(ctx, "/reports/", intParam("limit", limit), &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *HTTPClient) LatestReport(ctx context.Context, _ string) (*models.StressReportRow, error) {
	var r models.StressReportRow
	if err := c.get(ctx, "/reports/latest/", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
