package admin

import (
	"net/http"

	"github.com/txn2/chessline/pkg/audit"
)

// eventListResponse wraps a paginated list of audit events.
type eventListResponse struct {
	Data    []audit.Event `json:"data"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// eventStatsResponse holds aggregate audit statistics.
type eventStatsResponse struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Failures int `json:"failures"`
}

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// listEvents handles GET /api/v1/admin/events.
//
// Query parameters: identity, session_id, action, outcome, success,
// start_time, end_time (RFC 3339), page (1-based), per_page.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		Identity:  q.Get("identity"),
		SessionID: q.Get("session_id"),
		Action:    audit.Action(q.Get("action")),
		Outcome:   q.Get("outcome"),
		Success:   parseBoolParam(q, "success"),
		StartTime: parseTimeParam(q, paramStartTime),
		EndTime:   parseTimeParam(q, paramEndTime),
	}

	filter.Limit = parseLimit(q)
	if filter.Limit <= 0 {
		filter.Limit = defaultEventLimit
	}
	if filter.Limit > maxEventLimit {
		filter.Limit = maxEventLimit
	}
	effectiveLimit := filter.Limit
	filter.Offset = parsePageOffset(q, effectiveLimit)

	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	// Count without limit/offset for total
	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := h.deps.AuditQuerier.Count(r.Context(), countFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}

	if events == nil {
		events = []audit.Event{}
	}

	writeJSON(w, http.StatusOK, eventListResponse{
		Data:    events,
		Total:   total,
		Page:    filter.Offset/effectiveLimit + 1,
		PerPage: effectiveLimit,
	})
}

// getEvent handles GET /api/v1/admin/events/{id}.
func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	filter := audit.QueryFilter{ID: r.PathValue(pathParamID), Limit: 1}
	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query event")
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, events[0])
}

// getEventStats handles GET /api/v1/admin/events/stats.
func (h *Handler) getEventStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	baseFilter := audit.QueryFilter{
		Identity:  q.Get("identity"),
		Action:    audit.Action(q.Get("action")),
		StartTime: parseTimeParam(q, paramStartTime),
		EndTime:   parseTimeParam(q, paramEndTime),
	}

	total, err := h.deps.AuditQuerier.Count(r.Context(), baseFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}

	successVal := true
	successFilter := baseFilter
	successFilter.Success = &successVal
	successCount, err := h.deps.AuditQuerier.Count(r.Context(), successFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count successful events")
		return
	}

	writeJSON(w, http.StatusOK, eventStatsResponse{
		Total:    total,
		Success:  successCount,
		Failures: total - successCount,
	})
}
