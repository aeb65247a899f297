package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(NewViper(), discard)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "zaloga.sqlite3", cfg.DB.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.DB.PollInterval)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "zaloga:items", cfg.Redis.Channel)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, "info", cfg.Logging().Level)
}

func TestLoadEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("ZALOGA_DB_DRIVER", "pgx")
	t.Setenv("ZALOGA_DB_DSN", "postgres://localhost/zaloga")
	t.Setenv("ZALOGA_SERVER_WRITE_TIMEOUT", "2m")
	t.Setenv("ZALOGA_API_WRITE_BURST", "3")

	cfg, err := Load(NewViper(), discard)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.DB.Driver)
	assert.Equal(t, "postgres://localhost/zaloga", cfg.DB.DSN)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 3, cfg.API.WriteBurst)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ZALOGA_LOG_FORMAT=json\n"), 0o600))
	// godotenv sets real environment variables; restore afterwards.
	t.Setenv("ZALOGA_LOG_FORMAT", "")
	os.Unsetenv("ZALOGA_LOG_FORMAT")

	cfg, err := Load(NewViper(), discard)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "zaloga.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: 127.0.0.1:9090\nredis:\n  addr: localhost:6379\n"), 0o600))

	v := NewViper()
	v.Set("config", path)

	cfg, err := Load(v, discard)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadMissingConfigFile(t *testing.T) {
	inTempDir(t)
	v := NewViper()
	v.Set("config", "/nonexistent/zaloga.yaml")

	_, err := Load(v, discard)
	assert.ErrorContains(t, err, "reading config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DB:     DBConfig{Driver: "sqlite", DSN: "zaloga.sqlite3", PollInterval: time.Second},
			Server: ServerConfig{Addr: ":8080"},
			Log:    LogConfig{Level: "info", Format: "text"},
			Redis:  RedisConfig{Channel: "zaloga:items"},
			Auth:   AuthConfig{TokenExpiry: time.Hour},
			API:    APIConfig{WriteRate: 1, WriteBurst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"driver", func(c *Config) { c.DB.Driver = "mysql" }, "unsupported database driver"},
		{"dsn", func(c *Config) { c.DB.DSN = "" }, "dsn is required"},
		{"poll", func(c *Config) { c.DB.PollInterval = 0 }, "poll interval"},
		{"addr", func(c *Config) { c.Server.Addr = "" }, "server address"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "unknown log format"},
		{"channel", func(c *Config) { c.Redis.Addr = "localhost:6379"; c.Redis.Channel = "" }, "redis channel"},
		{"expiry", func(c *Config) { c.Auth.TokenExpiry = 0 }, "token expiry"},
		{"rate", func(c *Config) { c.API.WriteRate = 0 }, "write rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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
