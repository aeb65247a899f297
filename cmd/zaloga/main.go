package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/logging"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries the loaded configuration between the root command and its
// subcommands.
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	closeLog func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	c := &cobra.Command{
		Use:               "zaloga",
		Short:             "Live household inventory",
		Version:           version,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}

	f := c.PersistentFlags()
	f.String("config", "", "config file (yaml, toml or json)")
	f.String("db-driver", string(db.SQLite), "database driver: sqlite or pgx")
	f.String("db", "zaloga.sqlite3", "SQLite path or Postgres DSN")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "text", "log format: text or json")
	f.String("log-file", "", "also write logs to this file")
	f.String("redis", "", "Redis address for sharing changes between processes")

	bind(a.v, f.Lookup, map[string]string{
		"config":     "config",
		"db.driver":  "db-driver",
		"db.dsn":     "db",
		"log.level":  "log-level",
		"log.format": "log-format",
		"log.file":   "log-file",
		"redis.addr": "redis",
	})

	c.AddCommand(
		newInitCmd(a),
		newServeCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newWatchCmd(a),
	)
	return c
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, slog.Default())
	if err != nil {
		return err
	}

	opts := cfg.Logging()
	if cmd.Name() != "serve" {
		// Keep stdout for command output.
		opts.Stdout = cmd.ErrOrStderr()
		opts.Stderr = cmd.ErrOrStderr()
	}
	closeLog, err := logging.Setup(opts)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.closeLog = closeLog
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

// backend is an open database with the item store and its notifier.
type backend struct {
	db       *db.DB
	redis    *redis.Client
	notifier notify.Notifier
	store    *store.SQLStore
}

// openBackend opens the configured database, makes sure the schema exists
// and connects to Redis when an address is configured.
func (a *app) openBackend(ctx context.Context) (*backend, error) {
	database, err := db.Open(a.cfg.DB.Driver, a.cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	slog.Info("database ready", "driver", a.cfg.DB.Driver)

	b := &backend{db: database}
	if err := a.openNotifier(ctx, b); err != nil {
		b.Close()
		return nil, err
	}

	b.store = store.NewSQLStore(database, b.notifier, slog.Default())
	return b, nil
}

// openNotifier picks how live queries hear about writes from other
// processes: Redis when configured, otherwise the database itself.
func (a *app) openNotifier(ctx context.Context, b *backend) error {
	switch {
	case a.cfg.Redis.Addr != "":
		b.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		n, err := notify.NewRedisNotifier(ctx, b.redis, a.cfg.Redis.Channel, slog.Default())
		if err != nil {
			return err
		}
		b.notifier = n
		slog.Info("sharing item changes through redis", "addr", a.cfg.Redis.Addr, "channel", a.cfg.Redis.Channel)

	case b.db.Dialect == db.Postgres:
		n, err := notify.NewPostgresNotifier(ctx, b.db.DB, a.cfg.DB.DSN, "", slog.Default())
		if err != nil {
			return err
		}
		b.notifier = n
		slog.Info("sharing item changes through postgres notifications")

	case a.cfg.DB.DSN == ":memory:":
		// A private in-memory database has no other writers.
		b.notifier = notify.NewLocal()

	default:
		n, err := notify.NewSQLiteNotifier(ctx, b.db.DB, a.cfg.DB.PollInterval, slog.Default())
		if err != nil {
			return err
		}
		b.notifier = n
		slog.Debug("watching database file for changes", "interval", a.cfg.DB.PollInterval)
	}
	return nil
}

func (b *backend) Close() error {
	var errs []error
	if b.notifier != nil {
		errs = append(errs, b.notifier.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	errs = append(errs, b.db.Close())
	return errors.Join(errs...)
}

func bind(v *viper.Viper, lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}
