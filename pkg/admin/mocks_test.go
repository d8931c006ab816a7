package admin

import (
	"context"
	"time"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/session"
)

// --- Mock AuditQuerier ---

type mockAuditQuerier struct {
	queryResult []audit.Event
	queryErr    error
	countResult int
	countErr    error

	// countBySuccess overrides countResult when the filter sets Success.
	countBySuccess map[bool]int

	lastQuery audit.QueryFilter
	lastCount audit.QueryFilter
}

func (m *mockAuditQuerier) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	m.lastQuery = filter
	return m.queryResult, m.queryErr
}

func (m *mockAuditQuerier) Count(_ context.Context, filter audit.QueryFilter) (int, error) {
	m.lastCount = filter
	if m.countErr != nil {
		return 0, m.countErr
	}
	if filter.Success != nil && m.countBySuccess != nil {
		return m.countBySuccess[*filter.Success], nil
	}
	return m.countResult, nil
}

// Verify interface compliance.
var _ AuditQuerier = (*mockAuditQuerier)(nil)

// --- Mock AuditMetricsQuerier ---

type mockAuditMetricsQuerier struct {
	timeseriesResult []audit.TimeseriesBucket
	timeseriesErr    error
	breakdownResult  []audit.BreakdownEntry
	breakdownErr     error
	overviewResult   *audit.Overview
	overviewErr      error

	lastTimeseries audit.TimeseriesFilter
	lastBreakdown  audit.BreakdownFilter
}

func (m *mockAuditMetricsQuerier) Timeseries(_ context.Context, filter audit.TimeseriesFilter) ([]audit.TimeseriesBucket, error) {
	m.lastTimeseries = filter
	return m.timeseriesResult, m.timeseriesErr
}

func (m *mockAuditMetricsQuerier) Breakdown(_ context.Context, filter audit.BreakdownFilter) ([]audit.BreakdownEntry, error) {
	m.lastBreakdown = filter
	return m.breakdownResult, m.breakdownErr
}

func (m *mockAuditMetricsQuerier) Overview(_ context.Context, _, _ *time.Time) (*audit.Overview, error) {
	return m.overviewResult, m.overviewErr
}

// Verify interface compliance.
var _ AuditMetricsQuerier = (*mockAuditMetricsQuerier)(nil)

// --- Mock SessionReader ---

type mockSessionReader struct {
	sessions   map[string]*session.Session
	listResult []*session.Session
	err        error
	lastFilter session.Filter
}

func (m *mockSessionReader) Get(_ context.Context, id string) (*session.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sessions[id], nil
}

func (m *mockSessionReader) List(_ context.Context, filter session.Filter) ([]*session.Session, error) {
	m.lastFilter = filter
	return m.listResult, m.err
}

// Verify interface compliance.
var _ SessionReader = (*mockSessionReader)(nil)
