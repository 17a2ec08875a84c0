package mcp

import (
	"context"

	"github.com/claude/calmtrack/internal/insights"
	"github.com/claude/calmtrack/internal/models"
)

// DataSource abstracts where MCP tools read stress data from. Both
// *insights.Service (local) and HTTPClient (remote via the REST API)
// satisfy this interface.
type DataSource interface {
	Analysis(ctx context.Context, login string) (*insights.AnalysisPayload, error)
	Correlations(ctx context.Context, login string) (*insights.CorrelationPayload, error)
	History(ctx context.Context, login string, days int) ([]models.StressDayRow, error)
	Reports(ctx context.Context, login string, limit int) ([]models.StressReportRow, error)
	LatestReport(ctx context.Context, login string) (*models.StressReportRow, error)
}

// Compile-time check: *insights.Service satisfies DataSource.
var _ DataSource = (*insights.Service)(nil)
