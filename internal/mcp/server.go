// Package mcp exposes CalmTrack stress analyses as Model Context Protocol
// tools and resources.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const loginKey contextKey = iota

// DefaultLogin matches the identity the HTTP server assigns outside a
// tailnet.
const DefaultLogin = "local"

// LoginFromContext extracts the login injected by the transport layer.
func LoginFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(loginKey).(string); ok && l != "" {
		return l
	}
	return DefaultLogin
}

// WithLogin returns a context carrying login.
func WithLogin(ctx context.Context, login string) context.Context {
	return context.WithValue(ctx, loginKey, login)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("CalmTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("CalmTrack stress analysis server. Scores are heuristic (0-100) and derived from Google Fit heart rate, sleep, steps and calories. Days without readings are filled with demo values and flagged has_real_data=false."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetStressInsights, Handler: h.getStressInsights},
		server.ServerTool{Tool: toolGetStressHistory, Handler: h.getStressHistory},
		server.ServerTool{Tool: toolGetStressReports, Handler: h.getStressReports},
		server.ServerTool{Tool: toolGetStressCorrelations, Handler: h.getStressCorrelations},
	)

	s.AddResources(
		server.ServerResource{Resource: resStressScale, Handler: h.stressScale},
		server.ServerResource{Resource: resLatestReport, Handler: h.latestReport},
	)

	return s
}

type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resStressScale = mcp.NewResource(
	"calmtrack://stress_scale",
	"Stress Scale",
	mcp.WithResourceDescription("Stress score bands with their score ranges, labels and severities"),
	mcp.WithMIMEType("application/json"),
)

var resLatestReport = mcp.NewResource(
	"calmtrack://latest_report",
	"Latest Stress Report",
	mcp.WithResourceDescription("The most recently stored weekly stress report"),
	mcp.WithMIMEType("application/json"),
)
