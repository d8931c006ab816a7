package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/chessline/pkg/audit"
)

// --- Timeseries tests ---

func TestTimeseries_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	now := time.Now()
	start := now.Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{"bucket", "count", "success_count", "error_count"}).
		AddRow(now.Truncate(time.Hour), 10, 8, 2).
		AddRow(now.Truncate(time.Hour).Add(time.Hour), 5, 5, 0)

	mock.ExpectQuery(`SELECT date_trunc\('hour', timestamp\) AS bucket`).
		WithArgs(start, now).
		WillReturnRows(rows)

	result, err := store.Timeseries(context.Background(), audit.TimeseriesFilter{
		Resolution: audit.ResolutionHour,
		StartTime:  &start,
		EndTime:    &now,
	})

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 10, result[0].Count)
	assert.Equal(t, 2, result[0].ErrorCount)
	assert.Equal(t, 5, result[1].SuccessCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeseries_InvalidResolution(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	_, err = store.Timeseries(context.Background(), audit.TimeseriesFilter{Resolution: "invalid"})
	assert.ErrorContains(t, err, "invalid resolution")
}

func TestTimeseries_EmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"bucket", "count", "success_count", "error_count"}))

	result, err := store.Timeseries(context.Background(), audit.TimeseriesFilter{Resolution: audit.ResolutionDay})
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.NotNil(t, result) // must return empty slice, not nil
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Breakdown tests ---

func TestBreakdown_ByAction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})

	rows := sqlmock.NewRows([]string{"dimension", "count", "success_rate", "avg_duration_ms"}).
		AddRow("move", 120, 0.99, 35.0).
		AddRow("create", 10, 1.0, 12.0)
	mock.ExpectQuery(`SELECT COALESCE\(action, ''\) AS dimension.+LIMIT 10`).WillReturnRows(rows)

	entries, err := store.Breakdown(context.Background(), audit.BreakdownFilter{GroupBy: audit.BreakdownByAction})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "move", entries[0].Dimension)
	assert.Equal(t, 120, entries[0].Count)
	assert.InDelta(t, 0.99, entries[0].SuccessRate, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdown_LimitClamped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	mock.ExpectQuery(`LIMIT 100`).
		WillReturnRows(sqlmock.NewRows([]string{"dimension", "count", "success_rate", "avg_duration_ms"}))

	entries, err := store.Breakdown(context.Background(), audit.BreakdownFilter{
		GroupBy: audit.BreakdownByOutcome,
		Limit:   5000,
	})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdown_InvalidDimension(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = New(db, Config{}).Breakdown(context.Background(), audit.BreakdownFilter{GroupBy: "persona; DROP TABLE"})
	assert.ErrorContains(t, err, "invalid breakdown dimension")
}

func TestClampBreakdownLimit(t *testing.T) {
	assert.Equal(t, defaultBreakdownLimit, clampBreakdownLimit(0))
	assert.Equal(t, 25, clampBreakdownLimit(25))
	assert.Equal(t, maxBreakdownLimit, clampBreakdownLimit(1000))
}

// --- Overview tests ---

func TestOverview_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	fixed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	rows := sqlmock.NewRows([]string{
		"total_events", "success_rate", "avg_duration_ms", "unique_identities",
		"unique_sessions", "moves_played", "error_count",
	}).AddRow(200, 0.98, 21.5, 14, 7, 150, 4)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total_events`).
		WithArgs(fixed.Add(-defaultMetricsWindow), fixed).
		WillReturnRows(rows)

	o, err := store.Overview(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, o.TotalEvents)
	assert.Equal(t, 14, o.UniqueIdentities)
	assert.Equal(t, 7, o.UniqueSessions)
	assert.Equal(t, 150, o.MovesPlayed)
	assert.Equal(t, 4, o.ErrorCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverview_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("down"))
	_, err = New(db, Config{}).Overview(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "querying overview")
}
