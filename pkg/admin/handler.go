// Package admin provides read-only REST endpoints for operators: the game
// event audit trail, its metrics, and session records.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/session"
)

const pathParamID = "id"

// AuditQuerier reads audit events.
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int, error)
}

// AuditMetricsQuerier aggregates audit events.
type AuditMetricsQuerier interface {
	Timeseries(ctx context.Context, filter audit.TimeseriesFilter) ([]audit.TimeseriesBucket, error)
	Breakdown(ctx context.Context, filter audit.BreakdownFilter) ([]audit.BreakdownEntry, error)
	Overview(ctx context.Context, startTime, endTime *time.Time) (*audit.Overview, error)
}

// SessionReader reads game sessions.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	List(ctx context.Context, filter session.Filter) ([]*session.Session, error)
}

// Deps holds the data sources behind the admin API. Routes whose source
// is nil are not registered.
type Deps struct {
	AuditQuerier        AuditQuerier
	AuditMetricsQuerier AuditMetricsQuerier
	Sessions            SessionReader
}

// Handler provides admin REST API endpoints.
type Handler struct {
	mux        *http.ServeMux
	deps       Deps
	authMiddle func(http.Handler) http.Handler
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps, authMiddle func(http.Handler) http.Handler) *Handler {
	h := &Handler{
		mux:        http.NewServeMux(),
		deps:       deps,
		authMiddle: authMiddle,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.authMiddle != nil {
		h.authMiddle(h.mux).ServeHTTP(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all admin API routes.
func (h *Handler) registerRoutes() {
	if h.deps.AuditQuerier != nil {
		h.mux.HandleFunc("GET /api/v1/admin/events", h.listEvents)
		h.mux.HandleFunc("GET /api/v1/admin/events/stats", h.getEventStats)
		h.mux.HandleFunc("GET /api/v1/admin/events/{id}", h.getEvent)
	}
	h.registerMetricsRoutes()
	if h.deps.Sessions != nil {
		h.mux.HandleFunc("GET /api/v1/admin/sessions", h.listSessions)
		h.mux.HandleFunc("GET /api/v1/admin/sessions/{id}", h.getSession)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseTimeParam parses an RFC 3339 query parameter. Missing or invalid
// values yield nil.
func parseTimeParam(q url.Values, key string) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// parsePageOffset parses the page query parameter and computes offset using the given effective limit.
func parsePageOffset(q url.Values, effectiveLimit int) int {
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return (n - 1) * effectiveLimit
		}
	}
	return 0
}

// parseLimit parses the per_page query parameter into a limit value.
func parseLimit(q url.Values) int {
	if v := q.Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func parseBoolParam(q url.Values, key string) *bool {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
