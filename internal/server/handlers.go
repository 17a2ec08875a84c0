package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/claude/calmtrack/internal/charts"
	"github.com/claude/calmtrack/internal/googlefit"
	"github.com/claude/calmtrack/internal/insights"
	"github.com/claude/calmtrack/internal/storage"
)

const (
	dashboardPath = "/stress-analysis/dashboard/"
	sessionName   = "calmtrack"
	stateKey      = "oauth_state"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "disabled"}
	if s.stats != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.stats.Ping(ctx); err != nil {
			status["status"], status["database"] = "degraded", err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := userInfoFromContext(r)
	d := s.svc.Dashboard(r.Context(), user.Login)
	if flashes := s.takeFlashes(w, r); len(flashes) > 0 {
		d.Messages = append(flashes, d.Messages...)
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	state := googlefit.NewState()
	sess, _ := s.sessions.Get(r, sessionName)
	sess.Values[stateKey] = state
	if err := sess.Save(r, w); err != nil {
		s.log.Error("saving session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error connecting to Google Fit: " + err.Error()})
		return
	}
	http.Redirect(w, r, s.fit.AuthURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, _ := s.sessions.Get(r, sessionName)
	want, _ := sess.Values[stateKey].(string)
	delete(sess.Values, stateKey)

	switch {
	case want == "" || q.Get("state") != want:
		s.redirectWithFlash(w, r, insights.LevelError, "Security validation failed. Please try connecting again.")
		return
	case q.Get("error") != "":
		s.redirectWithFlash(w, r, insights.LevelError, "Google Fit authorization failed: "+q.Get("error"))
		return
	case q.Get("code") == "":
		s.redirectWithFlash(w, r, insights.LevelError, "No authorization code received")
		return
	}

	user := userInfoFromContext(r)
	if err := s.fit.Exchange(r.Context(), user.Login, q.Get("code")); err != nil {
		s.log.Error("google fit callback", "login", user.Login, "error", err)
		s.redirectWithFlash(w, r, insights.LevelError, "Error during Google Fit callback: "+err.Error())
		return
	}
	s.redirectWithFlash(w, r, insights.LevelSuccess, "Successfully connected to Google Fit! You can now sync your health data.")
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	login := userInfoFromContext(r).Login
	connected, err := s.fit.Connected(r.Context(), login)
	if err != nil {
		s.redirectWithFlash(w, r, insights.LevelError, "Error disconnecting Google Fit: "+err.Error())
		return
	}
	if !connected {
		s.redirectWithFlash(w, r, insights.LevelInfo, "Not connected to Google Fit")
		return
	}
	if err := s.fit.Disconnect(r.Context(), login); err != nil {
		s.redirectWithFlash(w, r, insights.LevelError, "Error disconnecting Google Fit: "+err.Error())
		return
	}
	s.redirectWithFlash(w, r, insights.LevelSuccess, "Disconnected from Google Fit")
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid request method"})
		return
	}
	user := userInfoFromContext(r)
	res, err := s.svc.Sync(r.Context(), user.Login, user.DisplayName)
	switch {
	case errors.Is(err, googlefit.ErrNotConnected):
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Google Fit not connected"})
		return
	case err != nil:
		s.log.Error("sync failed", "login", user.Login, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Insights(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Analysis(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Correlations(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Pattern(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", insights.DashboardLookbackDays)
	rows, err := s.svc.History(r.Context(), userInfoFromContext(r).Login, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.svc.Reports(r.Context(), userInfoFromContext(r).Login, queryInt(r, "limit", 30))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.LatestReport(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.stats.GetDataStats(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSyncLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.mustUserID(w, r)
	if !ok {
		return
	}
	logs, err := s.stats.QuerySyncLogs(r.Context(), uid, queryInt(r, "limit", 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []storage.SyncLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// mustUserID resolves the caller's stored user ID, writing the error
// response itself when it cannot.
func (s *Server) mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	if s.stats == nil {
		writeError(w, insights.ErrNoStorage)
		return 0, false
	}
	uid, err := s.stats.UserID(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		writeError(w, err)
		return 0, false
	}
	return uid, true
}

func (s *Server) handleChart(kind charts.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.chartData(r)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		var buf bytes.Buffer
		if err := charts.Render(&buf, kind, data); err != nil {
			s.log.Error("chart render failed", "chart", kind, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeHTML(w, buf.Bytes())
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	data, err := s.chartData(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := charts.Overview(&buf, data); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) chartData(r *http.Request) (charts.Data, error) {
	a, err := s.svc.Current(r.Context(), userInfoFromContext(r).Login)
	if err != nil {
		return charts.Data{}, err
	}
	return charts.Data{
		Days:   a.Days,
		Hourly: s.svc.NewPatternPayload(a).Hourly,
		Demo:   a.Demo,
	}, nil
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, level, text string) {
	sess, _ := s.sessions.Get(r, sessionName)
	sess.AddFlash(insights.Message{Level: level, Text: text})
	if err := sess.Save(r, w); err != nil {
		s.log.Warn("saving flash", "error", err)
	}
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) []insights.Message {
	sess, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	var out []insights.Message
	for _, f := range sess.Flashes() {
		if m, ok := f.(insights.Message); ok {
			out = append(out, m)
		}
	}
	if len(out) > 0 {
		if err := sess.Save(r, w); err != nil {
			s.log.Warn("clearing flashes", "error", err)
		}
	}
	return out
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, insights.ErrNoStorage):
		status = http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNoReport), errors.Is(err, storage.ErrUnknownUser):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
