package admin

import (
	"net/http"
	"strconv"

	"github.com/txn2/chessline/pkg/session"
)

const defaultSessionLimit = 50

// sessionListResponse wraps a list of sessions.
type sessionListResponse struct {
	Data []*session.Session `json:"data"`
}

// listSessions handles GET /api/v1/admin/sessions.
//
// Query parameters: identity, active (bool), limit.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := session.Filter{
		Identity: q.Get("identity"),
		Limit:    defaultSessionLimit,
	}
	if active := parseBoolParam(q, "active"); active != nil {
		filter.ActiveOnly = *active
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	sessions, err := h.deps.Sessions.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Data: sessions})
}

// getSession handles GET /api/v1/admin/sessions/{id}.
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Sessions.Get(r.Context(), r.PathValue(pathParamID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
