package server

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/claude/calmtrack/internal/charts"
	"github.com/claude/calmtrack/internal/insights"
	"github.com/claude/calmtrack/internal/metrics"
	"github.com/claude/calmtrack/internal/storage"
)

func init() {
	// Flash messages are stored in the cookie session.
	gob.Register(insights.Message{})
}

// GoogleFit is the OAuth surface of the Google Fit connector.
type GoogleFit interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, login, code string) error
	Connected(ctx context.Context, login string) (bool, error)
	Disconnect(ctx context.Context, login string) error
}

// Stats reads stored bookkeeping for the stats and sync-log endpoints.
type Stats interface {
	Ping(ctx context.Context) error
	UserID(ctx context.Context, login string) (int, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	QuerySyncLogs(ctx context.Context, userID, limit int) ([]storage.SyncLog, error)
}

// Options configures a Server. Stats and Metrics may be nil.
type Options struct {
	Insights  *insights.Service
	GoogleFit GoogleFit
	Sessions  sessions.Store
	Stats     Stats
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc      *insights.Service
	fit      GoogleFit
	sessions sessions.Store
	stats    Stats
	metrics  *metrics.Recorder
	ts       WhoIser
	log      *slog.Logger
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(opts Options) *Server {
	s := &Server{
		svc:      opts.Insights,
		fit:      opts.GoogleFit,
		sessions: opts.Sessions,
		stats:    opts.Stats,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		router:   chi.NewRouter(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.routes()
	return s
}

// NewCookieStore creates the session store for OAuth state and flashes.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SetTailscale switches identity resolution to tailnet WhoIs lookups.
func (s *Server) SetTailscale(lc WhoIser) {
	s.ts = lc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.ts == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.ts, s.log)(next).ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log, s.metrics))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, dashboardPath, http.StatusFound)
		})
		r.Get("/api/me", s.handleMe)

		r.Route("/stress-analysis", func(r chi.Router) {
			r.Get("/dashboard/", s.handleDashboard)
			r.Get("/connect-google-fit/", s.handleConnect)
			r.Get("/google-fit-callback/", s.handleCallback)
			r.HandleFunc("/disconnect-google-fit/", s.handleDisconnect)
			r.HandleFunc("/sync-data/", s.handleSync)

			r.Get("/api/insights/", s.handleInsights)
			r.Get("/api/analysis/", s.handleAnalysis)
			r.Get("/api/correlations/", s.handleCorrelations)
			r.Get("/api/patterns/", s.handlePatterns)
			r.Get("/api/history/", s.handleHistory)
			r.Get("/api/reports/", s.handleReports)
			r.Get("/api/reports/latest/", s.handleLatestReport)
			r.Get("/api/stats/", s.handleStats)
			r.Get("/api/sync-logs/", s.handleSyncLogs)

			for _, k := range charts.Kinds {
				r.Get("/api/"+string(k)+"-chart/", s.handleChart(k))
			}
			r.Get("/charts/", s.handleOverview)
		})
	})
}
