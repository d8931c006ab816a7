package admin

import (
	"net/http"
	"strconv"

	"github.com/txn2/chessline/pkg/audit"
)

const (
	paramStartTime = "start_time"
	paramEndTime   = "end_time"
)

// registerMetricsRoutes registers audit metrics endpoints.
func (h *Handler) registerMetricsRoutes() {
	if h.deps.AuditMetricsQuerier == nil {
		return
	}
	h.mux.HandleFunc("GET /api/v1/admin/events/metrics/timeseries", h.getTimeseries)
	h.mux.HandleFunc("GET /api/v1/admin/events/metrics/breakdown", h.getBreakdown)
	h.mux.HandleFunc("GET /api/v1/admin/events/metrics/overview", h.getOverview)
}

// getTimeseries handles GET /api/v1/admin/events/metrics/timeseries.
func (h *Handler) getTimeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resolution := audit.Resolution(q.Get("resolution"))
	if resolution == "" {
		resolution = audit.ResolutionHour
	}
	if !audit.ValidResolutions[resolution] {
		writeError(w, http.StatusBadRequest, "invalid resolution: must be minute, hour, or day")
		return
	}

	buckets, err := h.deps.AuditMetricsQuerier.Timeseries(r.Context(), audit.TimeseriesFilter{
		Resolution: resolution,
		StartTime:  parseTimeParam(q, paramStartTime),
		EndTime:    parseTimeParam(q, paramEndTime),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query timeseries")
		return
	}

	writeJSON(w, http.StatusOK, buckets)
}

// getBreakdown handles GET /api/v1/admin/events/metrics/breakdown.
func (h *Handler) getBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupBy := audit.BreakdownDimension(q.Get("group_by"))
	if !audit.ValidBreakdownDimensions[groupBy] {
		writeError(w, http.StatusBadRequest, "invalid group_by: must be action, outcome, or identity")
		return
	}

	var limit int
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.deps.AuditMetricsQuerier.Breakdown(r.Context(), audit.BreakdownFilter{
		GroupBy:   groupBy,
		Limit:     limit,
		StartTime: parseTimeParam(q, paramStartTime),
		EndTime:   parseTimeParam(q, paramEndTime),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query breakdown")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// getOverview handles GET /api/v1/admin/events/metrics/overview.
func (h *Handler) getOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	overview, err := h.deps.AuditMetricsQuerier.Overview(
		r.Context(),
		parseTimeParam(q, paramStartTime),
		parseTimeParam(q, paramEndTime),
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query overview")
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
