package mcp

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/calmtrack/internal/stress"
)

type band struct {
	Category stress.Category `json:"category"`
	Label    string          `json:"label"`
	Severity string          `json:"severity"`
	Min      float64         `json:"min"`
	Max      float64         `json:"max"`
}

// stressBands mirrors stress.Categorize; Max is exclusive except for the
// top band.
var stressBands = []band{
	{Category: stress.CategoryLow, Min: stress.MinScore, Max: 25},
	{Category: stress.CategoryModerate, Min: 25, Max: 50},
	{Category: stress.CategoryHigh, Min: 50, Max: 75},
	{Category: stress.CategoryVeryHigh, Min: 75, Max: stress.MaxScore},
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) stressScale(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	bands := make([]band, len(stressBands))
	for i, b := range stressBands {
		b.Label = b.Category.Label()
		b.Severity = b.Category.Severity()
		bands[i] = b
	}
	return jsonContents(req.Params.URI, map[string]any{
		"min":   stress.MinScore,
		"max":   stress.MaxScore,
		"bands": bands,
	})
}

func (h *handlers) latestReport(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report, err := h.ds.LatestReport(ctx, LoginFromContext(ctx))
	if err != nil {
		h.log.Warn("latest_report: query failed", "error", err)
		return nil, err
	}
	return jsonContents(req.Params.URI, report)
}
