package audit

import "time"

// Resolution defines the time bucketing granularity for timeseries queries.
type Resolution string

const (
	// ResolutionMinute buckets by minute.
	ResolutionMinute Resolution = "minute"

	// ResolutionHour buckets by hour.
	ResolutionHour Resolution = "hour"

	// ResolutionDay buckets by day.
	ResolutionDay Resolution = "day"
)

// ValidResolutions is the set of allowed resolution values.
var ValidResolutions = map[Resolution]bool{
	ResolutionMinute: true,
	ResolutionHour:   true,
	ResolutionDay:    true,
}

// TimeseriesFilter controls timeseries query parameters.
type TimeseriesFilter struct {
	Resolution Resolution
	StartTime  *time.Time
	EndTime    *time.Time
}

// TimeseriesBucket holds counts for a single time bucket.
type TimeseriesBucket struct {
	Bucket       time.Time `json:"bucket"`
	Count        int       `json:"count"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
}

// BreakdownDimension defines valid group-by dimensions.
type BreakdownDimension string

const (
	// BreakdownByAction groups by command.
	BreakdownByAction BreakdownDimension = "action"

	// BreakdownByOutcome groups by outcome code.
	BreakdownByOutcome BreakdownDimension = "outcome"

	// BreakdownByIdentity groups by participant.
	BreakdownByIdentity BreakdownDimension = "identity"
)

// ValidBreakdownDimensions is the set of allowed group-by values.
var ValidBreakdownDimensions = map[BreakdownDimension]bool{
	BreakdownByAction:   true,
	BreakdownByOutcome:  true,
	BreakdownByIdentity: true,
}

// BreakdownFilter controls breakdown query parameters.
type BreakdownFilter struct {
	GroupBy   BreakdownDimension
	Limit     int
	StartTime *time.Time
	EndTime   *time.Time
}

// BreakdownEntry holds aggregated stats for a single dimension value.
type BreakdownEntry struct {
	Dimension     string  `json:"dimension"`
	Count         int     `json:"count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Overview holds aggregate statistics for the audit log.
type Overview struct {
	TotalEvents      int     `json:"total_events"`
	SuccessRate      float64 `json:"success_rate"`
	AvgDurationMS    float64 `json:"avg_duration_ms"`
	UniqueIdentities int     `json:"unique_identities"`
	UniqueSessions   int     `json:"unique_sessions"`
	MovesPlayed      int     `json:"moves_played"`
	ErrorCount       int     `json:"error_count"`
}
