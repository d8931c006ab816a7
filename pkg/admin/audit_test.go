package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/chessline/pkg/audit"
)

func TestListEvents(t *testing.T) {
	now := time.Now()
	events := []audit.Event{
		{ID: "ev-1", Timestamp: now, Action: audit.ActionMove, Identity: "psid-1", Outcome: audit.OutcomeOK, Success: true},
		{ID: "ev-2", Timestamp: now, Action: audit.ActionJoin, Identity: "psid-2", Outcome: "NO_SUCH_CODE", Success: true},
	}

	t.Run("returns paginated events", func(t *testing.T) {
		aq := &mockAuditQuerier{queryResult: events, countResult: 10}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events?per_page=2&page=3", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body eventListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, 10, body.Total)
		assert.Equal(t, 3, body.Page)
		assert.Equal(t, 2, body.PerPage)
		assert.Len(t, body.Data, 2)
		assert.Equal(t, 4, aq.lastQuery.Offset)
		assert.Zero(t, aq.lastCount.Limit, "count ignores pagination")
		assert.Zero(t, aq.lastCount.Offset)
	})

	t.Run("applies filters", func(t *testing.T) {
		aq := &mockAuditQuerier{queryResult: events[:1], countResult: 1}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/admin/events?identity=psid-1&action=move&outcome=OK&session_id=s-1&success=true&start_time=2026-01-01T00:00:00Z",
			http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		f := aq.lastQuery
		assert.Equal(t, "psid-1", f.Identity)
		assert.Equal(t, audit.ActionMove, f.Action)
		assert.Equal(t, "OK", f.Outcome)
		assert.Equal(t, "s-1", f.SessionID)
		require.NotNil(t, f.Success)
		assert.True(t, *f.Success)
		require.NotNil(t, f.StartTime)
		assert.Nil(t, f.EndTime)
		assert.Equal(t, defaultEventLimit, f.Limit)
	})

	t.Run("caps page size", func(t *testing.T) {
		aq := &mockAuditQuerier{}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events?per_page=100000", http.NoBody)
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, maxEventLimit, aq.lastQuery.Limit)
	})

	t.Run("returns empty list on no results", func(t *testing.T) {
		aq := &mockAuditQuerier{queryResult: nil, countResult: 0}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("returns 500 on query error", func(t *testing.T) {
		aq := &mockAuditQuerier{queryErr: errors.New("db error")}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("returns 500 on count error", func(t *testing.T) {
		aq := &mockAuditQuerier{queryResult: events, countErr: errors.New("count error")}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetEvent(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		aq := &mockAuditQuerier{queryResult: []audit.Event{{ID: "ev-1", Action: audit.ActionLeave}}}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events/ev-1", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ev-1", aq.lastQuery.ID)
		var ev audit.Event
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ev))
		assert.Equal(t, audit.ActionLeave, ev.Action)
	})

	t.Run("not found", func(t *testing.T) {
		h := NewHandler(Deps{AuditQuerier: &mockAuditQuerier{}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events/missing", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("query error", func(t *testing.T) {
		h := NewHandler(Deps{AuditQuerier: &mockAuditQuerier{queryErr: errors.New("db error")}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events/ev-1", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetEventStats(t *testing.T) {
	t.Run("returns counts", func(t *testing.T) {
		aq := &mockAuditQuerier{countResult: 12, countBySuccess: map[bool]int{true: 9}}
		h := NewHandler(Deps{AuditQuerier: aq}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events/stats?action=move", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body eventStatsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, eventStatsResponse{Total: 12, Success: 9, Failures: 3}, body)
		assert.Equal(t, audit.ActionMove, aq.lastCount.Action)
	})

	t.Run("count error", func(t *testing.T) {
		h := NewHandler(Deps{AuditQuerier: &mockAuditQuerier{countErr: errors.New("db error")}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events/stats", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
