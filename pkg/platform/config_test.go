package platform

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/chessline/pkg/auth"
	"github.com/txn2/chessline/pkg/game"
	"github.com/txn2/chessline/pkg/messaging"
	"github.com/txn2/chessline/pkg/notify"
)

const testConfigYAML = `
server:
  address: ":9090"
  shutdown_timeout: 5s
database:
  dsn: "postgres://chess@localhost/chess"
messaging:
  application_id: "app-1"
  private_key_file: "/etc/chessline/private.key"
  from: "page-1"
  signature_secret: "${TEST_CHESSLINE_SECRET}"
game:
  clock_seconds: 600
audit:
  enabled: true
  retention_days: 30
admin:
  api_keys:
    - name: ops
      key_hash: "$2a$10$abcdefghijklmnopqrstuv"
      roles: [admin]
logging:
  level: debug
  format: text
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Setenv("TEST_CHESSLINE_SECRET", "s3cret")

	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres://chess@localhost/chess", cfg.Database.DSN)
	assert.Equal(t, "app-1", cfg.Messaging.ApplicationID)
	assert.Equal(t, "s3cret", cfg.Messaging.SignatureSecret)
	assert.Equal(t, 600, cfg.Game.ClockSeconds)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	require.Len(t, cfg.Admin.APIKeys, 1)
	assert.Equal(t, auth.APIKey{Name: "ops", KeyHash: "$2a$10$abcdefghijklmnopqrstuv", Roles: []string{"admin"}}, cfg.Admin.APIKeys[0])
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_CHESSLINE_A", "alpha")

	tests := []struct {
		in, want string
	}{
		{"${TEST_CHESSLINE_A}", "alpha"},
		{"x-${TEST_CHESSLINE_A}-y", "x-alpha-y"},
		{"${TEST_CHESSLINE_UNSET}", ""},
		{"$TEST_CHESSLINE_A", "$TEST_CHESSLINE_A"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in), tt.in)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "chessline", cfg.Server.Name)
	assert.Equal(t, defaultAddress, cfg.Server.Address)
	assert.Equal(t, defaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, defaultMaxOpenConns, cfg.Database.MaxOpenConns)
	assert.Equal(t, messaging.DefaultBaseURL, cfg.Messaging.BaseURL)
	assert.Equal(t, messaging.DefaultChannel, cfg.Messaging.Channel)
	assert.Equal(t, game.DefaultClockSeconds, cfg.Game.ClockSeconds)
	assert.Equal(t, notify.DefaultBoardTemplate, cfg.Notify.BoardTemplate)
	assert.Equal(t, defaultRetentionDays, cfg.Audit.RetentionDays)
	assert.Equal(t, defaultCleanupInterval, cfg.Audit.CleanupInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestApplyDefaults_PreservesExisting(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Address: ":1"},
		Game:   GameConfig{ClockSeconds: 90},
		Notify: NotifyConfig{BoardTemplate: "https://boards.example/{placement}.png"},
	}
	applyDefaults(cfg)

	assert.Equal(t, ":1", cfg.Server.Address)
	assert.Equal(t, 90, cfg.Game.ClockSeconds)
	assert.Equal(t, "https://boards.example/{placement}.png", cfg.Notify.BoardTemplate)
}

func validConfig() *Config {
	cfg := &Config{
		Messaging: MessagingConfig{ApplicationID: "app", PrivateKey: "pem", From: "page"},
	}
	applyDefaults(cfg)
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing application id", func(c *Config) { c.Messaging.ApplicationID = "" }, "messaging.application_id"},
		{"missing sender", func(c *Config) { c.Messaging.From = "" }, "messaging.from"},
		{"missing key", func(c *Config) { c.Messaging.PrivateKey = "" }, "private_key"},
		{"key file is enough", func(c *Config) {
			c.Messaging.PrivateKey = ""
			c.Messaging.PrivateKeyFile = "/k.pem"
		}, ""},
		{"negative clock", func(c *Config) { c.Game.ClockSeconds = -1 }, "game.clock_seconds"},
		{"negative retention", func(c *Config) { c.Audit.RetentionDays = -1 }, "audit.retention_days"},
		{"unnamed api key", func(c *Config) { c.Admin.APIKeys = []auth.APIKey{{Key: "k"}} }, "api_keys[0].name"},
		{"api key without secret", func(c *Config) { c.Admin.APIKeys = []auth.APIKey{{Name: "ops"}} }, "key or key_hash"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMessagingConfig_PrivateKey(t *testing.T) {
	inline, err := MessagingConfig{PrivateKey: "inline"}.privateKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), inline)

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))
	fromFile, err := MessagingConfig{PrivateKeyFile: path}.privateKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), fromFile)

	_, err = MessagingConfig{PrivateKeyFile: path + ".missing"}.privateKey()
	assert.ErrorContains(t, err, "reading private key")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = NewLogger(LoggingConfig{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	_, err = NewLogger(LoggingConfig{Level: "nope"}, &buf)
	assert.Error(t, err)
}
