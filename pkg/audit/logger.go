// Package audit records game events: who issued which command against
// which session, and how it turned out.
package audit

import (
	"context"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int, error)

	// Close releases resources.
	Close() error
}

// Event represents an auditable game event.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	DurationMS   int64          `json:"duration_ms"`
	RequestID    string         `json:"request_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	Identity     string         `json:"identity"`
	Action       Action         `json:"action"`
	Outcome      string         `json:"outcome"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	ID        string
	StartTime *time.Time
	EndTime   *time.Time
	Identity  string
	SessionID string
	Action    Action
	Outcome   string
	Success   *bool
	Limit     int
	Offset    int
}

// Config configures audit logging.
type Config struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`

	// CleanupInterval is how often expired events are deleted from the
	// database.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// MemoryCapacity bounds the in-memory log used without a database.
	MemoryCapacity int `yaml:"memory_capacity"`
}
