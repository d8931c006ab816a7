package platform

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/notify"
	"github.com/txn2/chessline/pkg/session"
)

// Options configures the platform.
type Options struct {
	// Config is the server configuration.
	Config *Config

	// DB is an open database connection. When nil, one is opened from
	// Config.Database.DSN if set. A supplied DB is not closed by Close.
	DB *sql.DB

	// SessionStore overrides the store derived from the database.
	SessionStore session.Store

	// AuditLogger overrides the audit log derived from the database.
	AuditLogger audit.Logger

	// Transport overrides the Vonage client built from Config.Messaging.
	Transport notify.Transport

	Logger *slog.Logger

	// Now is the game clock. Defaults to time.Now.
	Now func() time.Time
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithSessionStore sets the session store.
func WithSessionStore(store session.Store) Option {
	return func(o *Options) {
		o.SessionStore = store
	}
}

// WithAuditLogger sets the audit log.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = logger
	}
}

// WithTransport sets the channel transport.
func WithTransport(t notify.Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithClock sets the time source used by games.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}
