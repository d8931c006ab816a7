package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/txn2/chessline/pkg/admin"
	"github.com/txn2/chessline/pkg/audit"
	auditpostgres "github.com/txn2/chessline/pkg/audit/postgres"
	"github.com/txn2/chessline/pkg/auth"
	"github.com/txn2/chessline/pkg/database/migrate"
	"github.com/txn2/chessline/pkg/game"
	"github.com/txn2/chessline/pkg/health"
	"github.com/txn2/chessline/pkg/messaging"
	"github.com/txn2/chessline/pkg/notify"
	"github.com/txn2/chessline/pkg/rules"
	"github.com/txn2/chessline/pkg/session"
	sessionpostgres "github.com/txn2/chessline/pkg/session/postgres"
	"github.com/txn2/chessline/pkg/webhook"
)

// runMigrations applies the schema. Tests replace it.
var runMigrations = migrate.Run

// openDB opens a database connection. Tests replace it.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

// Platform is the assembled chessline server.
type Platform struct {
	config    *Config
	logger    *slog.Logger
	lifecycle *Lifecycle

	db     *sql.DB
	ownsDB bool

	sessions   session.Store
	auditLog   audit.Logger
	auditStore *auditpostgres.Store

	transport notify.Transport
	game      *game.Service
	health    *health.Checker
	webhook   *webhook.Handler
	admin     *admin.Handler
	handler   http.Handler
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}

	p := &Platform{
		config:    options.Config,
		logger:    options.Logger,
		lifecycle: NewLifecycle(),
		health:    health.NewChecker(),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents builds every component in dependency order.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initDatabase(opts); err != nil {
		return err
	}
	p.initSessions(opts)
	p.initAudit(opts)
	if err := p.initGame(opts); err != nil {
		return err
	}
	if err := p.initAdmin(); err != nil {
		return err
	}
	p.buildHandler()
	return nil
}

// initDatabase opens and migrates the database when one is configured.
func (p *Platform) initDatabase(opts *Options) error {
	p.db = opts.DB
	if p.db == nil && p.config.Database.DSN != "" {
		db, err := openDB(p.config.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
		if p.config.Database.MaxIdleConns > 0 {
			db.SetMaxIdleConns(p.config.Database.MaxIdleConns)
		}
		if p.config.Database.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(p.config.Database.ConnMaxLifetime)
		}
		p.db = db
		p.ownsDB = true
	}
	if p.db == nil {
		return nil
	}

	if !p.config.Database.SkipMigrations {
		if err := runMigrations(p.db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}
	p.health.AddCheck("database", health.PingCheck(p.db))
	return nil
}

func (p *Platform) initSessions(opts *Options) {
	switch {
	case opts.SessionStore != nil:
		p.sessions = opts.SessionStore
	case p.db != nil:
		p.sessions = sessionpostgres.New(p.db)
	default:
		p.logger.Warn("no database configured, sessions are kept in memory")
		p.sessions = session.NewMemoryStore()
	}
}

func (p *Platform) initAudit(opts *Options) {
	cfg := p.config.Audit
	switch {
	case !cfg.Enabled:
		p.auditLog = audit.NoopLogger{}
	case opts.AuditLogger != nil:
		p.auditLog = opts.AuditLogger
	case p.db != nil:
		store := auditpostgres.New(p.db, auditpostgres.Config{RetentionDays: cfg.RetentionDays})
		p.auditStore = store
		p.auditLog = store
		p.lifecycle.Append("audit-cleanup",
			func(context.Context) error {
				store.StartCleanupRoutine(cfg.CleanupInterval)
				return nil
			},
			func(context.Context) error { return store.Close() })
	default:
		p.auditLog = audit.NewMemoryLogger(cfg.MemoryCapacity)
	}
}

// initGame builds the transport, the notification dispatcher, the game
// service and the webhook handler in front of it.
func (p *Platform) initGame(opts *Options) error {
	p.transport = opts.Transport
	if p.transport == nil {
		client, err := p.newMessagingClient()
		if err != nil {
			return err
		}
		p.transport = client
	}

	dispatcher, err := notify.New(p.transport, notify.Config{
		BoardTemplate: p.config.Notify.BoardTemplate,
		Logger:        p.logger,
	})
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	p.game, err = game.New(game.Config{
		Store:        p.sessions,
		Oracle:       rules.New(),
		Notifier:     dispatcher,
		Audit:        p.auditLog,
		Logger:       p.logger,
		Now:          opts.Now,
		ClockSeconds: p.config.Game.ClockSeconds,
		CodeAttempts: p.config.Game.CodeAttempts,
	})
	if err != nil {
		return fmt.Errorf("creating game service: %w", err)
	}

	var verifier *webhook.Verifier
	if p.config.Messaging.SignatureSecret != "" {
		verifier = webhook.NewVerifier(p.config.Messaging.SignatureSecret)
	} else {
		p.logger.Warn("webhook signature verification disabled")
	}
	p.webhook = webhook.NewHandler(p.game, webhook.Config{
		Verifier:     verifier,
		Logger:       p.logger,
		MaxBodyBytes: p.config.Server.MaxBodyBytes,
		Now:          opts.Now,
	})
	return nil
}

func (p *Platform) newMessagingClient() (*messaging.Client, error) {
	m := p.config.Messaging
	key, err := m.privateKey()
	if err != nil {
		return nil, err
	}
	client, err := messaging.NewClient(messaging.Config{
		BaseURL:       m.BaseURL,
		ApplicationID: m.ApplicationID,
		PrivateKey:    key,
		From:          m.From,
		Channel:       m.Channel,
		HTTPClient:    &http.Client{Timeout: m.Timeout},
		Logger:        p.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating messaging client: %w", err)
	}
	return client, nil
}

// initAdmin mounts the admin API when API keys are configured.
func (p *Platform) initAdmin() error {
	if len(p.config.Admin.APIKeys) == 0 {
		return nil
	}
	authn, err := auth.NewAPIKeyAuthenticator(p.config.Admin.APIKeys)
	if err != nil {
		return fmt.Errorf("creating admin authenticator: %w", err)
	}

	deps := admin.Deps{
		AuditQuerier: p.auditLog,
		Sessions:     p.sessions,
	}
	if p.auditStore != nil {
		deps.AuditMetricsQuerier = p.auditStore
	}
	p.admin = admin.NewHandler(deps, admin.RequireAdmin(authn))
	return nil
}

// buildHandler routes health, admin and webhook traffic.
func (p *Platform) buildHandler() {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", p.health.LivenessHandler())
	mux.Handle("GET /readyz", p.health.ReadinessHandler())
	if p.admin != nil {
		mux.Handle("/api/v1/admin/", p.admin)
	}
	mux.Handle("/", p.webhook)
	p.handler = mux
}

// Start starts background components and marks the server ready.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return err
	}
	p.health.SetReady()
	p.logger.Info("platform started",
		"name", p.config.Server.Name,
		"database", p.db != nil,
		"audit", p.config.Audit.Enabled,
		"admin", p.admin != nil)
	return nil
}

// Stop marks the server as draining and stops background components.
func (p *Platform) Stop(ctx context.Context) error {
	p.health.SetDraining()
	return p.lifecycle.Stop(ctx)
}

// Handler returns the HTTP handler serving every endpoint.
func (p *Platform) Handler() http.Handler {
	return p.handler
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Game returns the game service.
func (p *Platform) Game() *game.Service {
	return p.game
}

// Sessions returns the session store.
func (p *Platform) Sessions() session.Store {
	return p.sessions
}

// AuditLogger returns the audit log.
func (p *Platform) AuditLogger() audit.Logger {
	return p.auditLog
}

// closeResource closes a resource and appends any error.
func closeResource(errs *[]error, closer Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		*errs = append(*errs, err)
	}
}

// Close closes all platform resources. A database supplied through
// WithDB is left open.
func (p *Platform) Close() error {
	var errs []error

	if p.auditLog != nil {
		closeResource(&errs, p.auditLog)
	}
	if p.sessions != nil {
		closeResource(&errs, p.sessions)
	}
	if p.ownsDB && p.db != nil {
		closeResource(&errs, p.db)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing platform: %w", errors.Join(errs...))
	}
	return nil
}
