// Package platform assembles the chessline server from configuration: the
// session store, audit trail, channel transport, game service and the HTTP
// surfaces in front of them.
package platform

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/auth"
	"github.com/txn2/chessline/pkg/game"
	"github.com/txn2/chessline/pkg/messaging"
	"github.com/txn2/chessline/pkg/notify"
)

// Config holds the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Messaging MessagingConfig `yaml:"messaging"`
	Game      GameConfig      `yaml:"game"`
	Notify    NotifyConfig    `yaml:"notify"`
	Audit     audit.Config    `yaml:"audit"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// DatabaseConfig configures the PostgreSQL connection. An empty DSN keeps
// sessions and audit events in memory.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SkipMigrations  bool          `yaml:"skip_migrations"`
}

// MessagingConfig configures the Vonage Messages API.
type MessagingConfig struct {
	BaseURL        string `yaml:"base_url"`
	ApplicationID  string `yaml:"application_id"`
	PrivateKey     string `yaml:"private_key"`
	PrivateKeyFile string `yaml:"private_key_file"`
	From           string `yaml:"from"`
	Channel        string `yaml:"channel"`

	// SignatureSecret enables verification of signed webhooks.
	SignatureSecret string `yaml:"signature_secret"`

	Timeout time.Duration `yaml:"timeout"`
}

// GameConfig configures game rules that are not part of chess itself.
type GameConfig struct {
	ClockSeconds int `yaml:"clock_seconds"`
	CodeAttempts int `yaml:"code_attempts"`
}

// NotifyConfig configures outbound notifications.
type NotifyConfig struct {
	BoardTemplate string `yaml:"board_template"`
}

// AdminConfig configures the admin API. The API is mounted only when at
// least one key is configured.
type AdminConfig struct {
	APIKeys []auth.APIKey `yaml:"api_keys"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultAddress         = ":8080"
	defaultShutdownTimeout = 15 * time.Second
	defaultMaxOpenConns    = 25
	defaultRetentionDays   = 90
	defaultCleanupInterval = 24 * time.Hour
	defaultMemoryCapacity  = 10000
	defaultHTTPTimeout     = 10 * time.Second

	logFormatJSON = "json"
	logFormatText = "text"
)

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "chessline"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Messaging.BaseURL == "" {
		cfg.Messaging.BaseURL = messaging.DefaultBaseURL
	}
	if cfg.Messaging.Channel == "" {
		cfg.Messaging.Channel = messaging.DefaultChannel
	}
	if cfg.Messaging.Timeout == 0 {
		cfg.Messaging.Timeout = defaultHTTPTimeout
	}
	if cfg.Game.ClockSeconds == 0 {
		cfg.Game.ClockSeconds = game.DefaultClockSeconds
	}
	if cfg.Notify.BoardTemplate == "" {
		cfg.Notify.BoardTemplate = notify.DefaultBoardTemplate
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultRetentionDays
	}
	if cfg.Audit.CleanupInterval == 0 {
		cfg.Audit.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Audit.MemoryCapacity == 0 {
		cfg.Audit.MemoryCapacity = defaultMemoryCapacity
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = logFormatJSON
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Messaging.ApplicationID == "" {
		errs = append(errs, "messaging.application_id is required")
	}
	if c.Messaging.From == "" {
		errs = append(errs, "messaging.from is required")
	}
	if c.Messaging.PrivateKey == "" && c.Messaging.PrivateKeyFile == "" {
		errs = append(errs, "messaging.private_key or messaging.private_key_file is required")
	}
	if c.Game.ClockSeconds < 0 {
		errs = append(errs, "game.clock_seconds must be positive")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}
	for i, k := range c.Admin.APIKeys {
		if k.Name == "" {
			errs = append(errs, fmt.Sprintf("admin.api_keys[%d].name is required", i))
		}
		if k.Key == "" && k.KeyHash == "" {
			errs = append(errs, fmt.Sprintf("admin.api_keys[%d] needs key or key_hash", i))
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if f := c.Logging.Format; f != logFormatJSON && f != logFormatText {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text, got %q", f))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// privateKey returns the PEM-encoded application key, inline or from file.
func (m MessagingConfig) privateKey() ([]byte, error) {
	if m.PrivateKey != "" {
		return []byte(m.PrivateKey), nil
	}
	if m.PrivateKeyFile == "" {
		return nil, nil
	}
	// #nosec G304 -- path is from config, controlled by admin
	key, err := os.ReadFile(m.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return key, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == logFormatText {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}
