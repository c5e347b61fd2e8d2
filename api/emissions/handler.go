// Package emissions serves run results and stored daily totals over HTTP.
package emissions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/engine"
	"github.com/kilianp07/taxico2/core/extremal"
	"github.com/kilianp07/taxico2/core/model"
)

// DailyQuerier reads persisted daily totals.
type DailyQuerier interface {
	Query(ctx context.Context, c model.Category, start, end model.Date) ([]aggregate.DailyTotal, error)
}

// LatestReport holds the most recent report. It is safe for concurrent use.
type LatestReport struct {
	mu  sync.RWMutex
	rep *engine.Report
}

// Set replaces the held report.
func (l *LatestReport) Set(rep *engine.Report) {
	l.mu.Lock()
	l.rep = rep
	l.mu.Unlock()
}

// Get returns the held report, or nil before the first run.
func (l *LatestReport) Get() *engine.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rep
}

// Handler serves the emissions API.
type Handler struct {
	reports *LatestReport
	daily   DailyQuerier
}

// NewHandler creates a handler. daily may be nil when no store is configured.
func NewHandler(reports *LatestReport, daily DailyQuerier) *Handler {
	return &Handler{reports: reports, daily: daily}
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// DailyResponse is the JSON response of GET /api/categories/{category}/daily.
type DailyResponse struct {
	Category   model.Category         `json:"category"`
	Start      *model.Date            `json:"start,omitempty"`
	End        *model.Date            `json:"end,omitempty"`
	Days       []aggregate.DailyTotal `json:"days"`
	Count      int                    `json:"count"`
	TotalCO2Kg float64                `json:"total_co2_kg"`
}

// GetReport handles GET /api/report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetSeries handles GET /api/series.
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep.Series())
}

// GetExtremes handles GET /api/extremes with optional category and
// granularity filters.
func (h *Handler) GetExtremes(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w)
	if !ok {
		return
	}
	cat := model.ParseCategory(r.URL.Query().Get("category"))
	gran := aggregate.Granularity(r.URL.Query().Get("granularity"))
	out := []extremal.Result{}
	for _, res := range rep.Extremes() {
		if cat != "" && res.Category != cat {
			continue
		}
		if gran != "" && res.Granularity != gran {
			continue
		}
		out = append(out, res)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDaily handles GET /api/categories/{category}/daily?start=&end=.
// Dates are YYYY-MM-DD and both bounds are inclusive.
func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	if h.daily == nil {
		writeError(w, http.StatusServiceUnavailable, "Daily store is not configured", nil)
		return
	}
	cat := model.ParseCategory(chi.URLParam(r, "category"))
	if cat == "" {
		writeError(w, http.StatusBadRequest, "category parameter is required", nil)
		return
	}
	if rep := h.reports.Get(); rep != nil {
		if _, err := rep.Category(cat); errors.Is(err, model.ErrUnknownCategory) {
			writeError(w, http.StatusNotFound, "Unknown category", map[string]any{"category": cat})
			return
		}
	}

	start, ok := dateParam(w, r, "start")
	if !ok {
		return
	}
	end, ok := dateParam(w, r, "end")
	if !ok {
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		writeError(w, http.StatusBadRequest, "end is before start", nil)
		return
	}

	rows, err := h.daily.Query(r.Context(), cat, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve daily totals", map[string]any{"internal": err.Error()})
		return
	}
	if rows == nil {
		rows = []aggregate.DailyTotal{}
	}
	resp := DailyResponse{Category: cat, Days: rows, Count: len(rows)}
	if !start.IsZero() {
		resp.Start = &start
	}
	if !end.IsZero() {
		resp.End = &end
	}
	for _, d := range rows {
		resp.TotalCO2Kg += d.CO2Kg
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}
	if rep := h.reports.Get(); rep != nil {
		body["run_id"] = rep.RunID
		body["started_at"] = rep.StartedAt
	}
	writeJSON(w, http.StatusOK, body)
}

// dateParam parses an optional YYYY-MM-DD query parameter. A missing value
// yields the zero Date, which leaves that side of the range open.
func dateParam(w http.ResponseWriter, r *http.Request, name string) (model.Date, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return model.Date{}, true
	}
	d, err := model.ParseDate(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name+" date", map[string]any{
			name:       v,
			"internal": err.Error(),
		})
		return model.Date{}, false
	}
	return d, true
}

func (h *Handler) latest(w http.ResponseWriter) (*engine.Report, bool) {
	rep := h.reports.Get()
	if rep == nil {
		writeError(w, http.StatusServiceUnavailable, "No report available yet", nil)
		return nil, false
	}
	return rep, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
