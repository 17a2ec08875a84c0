package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/calmtrack/internal/insights"
)

const (
	maxHistoryDays = 365
	maxReports     = 100
)

var toolGetStressInsights = mcp.NewTool("get_stress_insights",
	mcp.WithDescription("Analyze the last 7 days: per-day stress scores, summary statistics, trend, recommendations and data coverage."),
)

var toolGetStressHistory = mcp.NewTool("get_stress_history",
	mcp.WithDescription("Stored daily stress rows from previous syncs. Only days backed by Google Fit readings are stored."),
	mcp.WithNumber("days", mcp.Description("Days of history to return. Defaults to 30."), mcp.Min(1), mcp.Max(maxHistoryDays)),
)

var toolGetStressReports = mcp.NewTool("get_stress_reports",
	mcp.WithDescription("Stored weekly stress reports, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum reports to return. Defaults to 10."), mcp.Min(1), mcp.Max(maxReports)),
)

var toolGetStressCorrelations = mcp.NewTool("get_stress_correlations",
	mcp.WithDescription("Pearson correlation between daily stress and heart rate, sleep, steps and calories over the last 7 days."),
)

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStressInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := h.ds.Analysis(ctx, LoginFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_stress_insights", "error", err)
		return mcp.NewToolResultError("analysis failed: " + err.Error()), nil
	}
	return jsonResult(p)
}

func (h *handlers) getStressHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := clamp(req.GetInt("days", insights.DashboardLookbackDays), 1, maxHistoryDays)

	rows, err := h.ds.History(ctx, LoginFromContext(ctx), days)
	if err != nil {
		h.log.Error("mcp get_stress_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(rows)
}

func (h *handlers) getStressReports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clamp(req.GetInt("limit", 10), 1, maxReports)

	reports, err := h.ds.Reports(ctx, LoginFromContext(ctx), limit)
	if err != nil {
		h.log.Error("mcp get_stress_reports", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(reports)
}

func (h *handlers) getStressCorrelations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := h.ds.Correlations(ctx, LoginFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_stress_correlations", "error", err)
		return mcp.NewToolResultError("analysis failed: " + err.Error()), nil
	}
	return jsonResult(p)
}
