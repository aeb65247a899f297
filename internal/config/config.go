// Package config loads runtime settings from flags, ZALOGA_* environment
// variables, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. ZALOGA_DB_DSN.
const EnvPrefix = "ZALOGA"

// Config holds all application configuration.
type Config struct {
	DB     DBConfig
	Server ServerConfig
	Log    LogConfig
	Redis  RedisConfig
	Auth   AuthConfig
	API    APIConfig
}

// DBConfig selects the database.
type DBConfig struct {
	Driver string // sqlite, pgx
	DSN    string
	// PollInterval is how often a SQLite file is checked for writes made by
	// other processes.
	PollInterval time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig is passed to logging.Setup.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// RedisConfig enables cross-process change notifications when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// AuthConfig holds session settings.
type AuthConfig struct {
	TokenExpiry time.Duration
}

// APIConfig limits write requests per client.
type APIConfig struct {
	WriteRate  float64
	WriteBurst int
}

// NewViper returns a viper instance with defaults and environment binding.
// Callers bind their flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db.driver", string(db.SQLite))
	v.SetDefault("db.dsn", "zaloga.sqlite3")
	v.SetDefault("db.poll_interval", 250*time.Millisecond)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "zaloga:items")
	v.SetDefault("auth.token_expiry", 7*24*time.Hour)
	v.SetDefault("api.write_rate", 5.0)
	v.SetDefault("api.write_burst", 10)
	return v
}

// Load reads the configuration. A .env file in the working directory is
// loaded first if present; the file named by the "config" key is read after.
func Load(v *viper.Viper, logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else {
		logger.Debug(".env file loaded")
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		logger.Debug("config file loaded", "path", path)
	}

	cfg := &Config{
		DB: DBConfig{
			Driver:       v.GetString("db.driver"),
			DSN:          v.GetString("db.dsn"),
			PollInterval: v.GetDuration("db.poll_interval"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		Auth: AuthConfig{
			TokenExpiry: v.GetDuration("auth.token_expiry"),
		},
		API: APIConfig{
			WriteRate:  v.GetFloat64("api.write_rate"),
			WriteBurst: v.GetInt("api.write_burst"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the program cannot run with.
func (c *Config) Validate() error {
	switch db.Dialect(c.DB.Driver) {
	case db.SQLite, db.Postgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.DB.PollInterval <= 0 {
		return fmt.Errorf("database poll interval must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return fmt.Errorf("redis channel is required")
	}
	if c.Auth.TokenExpiry <= 0 {
		return fmt.Errorf("token expiry must be positive")
	}
	if c.API.WriteRate <= 0 || c.API.WriteBurst <= 0 {
		return fmt.Errorf("write rate and burst must be positive")
	}
	return nil
}

// Logging converts the log settings for logging.Setup.
func (c *Config) Logging() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}
