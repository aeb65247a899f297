package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/erazemk/zaloga/internal/live"
)

// DefaultPostgresChannel is the LISTEN/NOTIFY channel used when none is
// configured.
const DefaultPostgresChannel = "zaloga_items"

// PostgresNotifier shares change signals through PostgreSQL LISTEN/NOTIFY, so
// every process using the database hears about every write without Redis.
type PostgresNotifier struct {
	listener *pgx.Conn
	db       *sql.DB
	channel  string
	local    *live.Topic[struct{}]
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Notifier = (*PostgresNotifier)(nil)

// NewPostgresNotifier opens a dedicated listening connection to dsn. Signals
// are sent through database.
func NewPostgresNotifier(ctx context.Context, database *sql.DB, dsn, channel string, logger *slog.Logger) (*PostgresNotifier, error) {
	if channel == "" {
		channel = DefaultPostgresChannel
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting change listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("listening on %s: %w", channel, err)
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n := &PostgresNotifier{
		listener: conn,
		db:       database,
		channel:  channel,
		local:    live.NewTopic[struct{}](),
		logger:   logger.With("component", "notify", "channel", channel),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go n.listen(listenCtx)
	return n, nil
}

func (n *PostgresNotifier) listen(ctx context.Context) {
	defer close(n.done)
	for {
		if _, err := n.listener.WaitForNotification(ctx); err != nil {
			if ctx.Err() == nil {
				n.logger.Error("item change listener stopped", "error", err)
			}
			return
		}
		n.local.Publish(struct{}{})
	}
}

// Notify implements Notifier.
func (n *PostgresNotifier) Notify(ctx context.Context) error {
	n.local.Publish(struct{}{})
	if _, err := n.db.ExecContext(ctx, `SELECT pg_notify($1, 'changed')`, n.channel); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Listen implements Notifier.
func (n *PostgresNotifier) Listen(ctx context.Context) (*live.Subscription[struct{}], error) {
	sub := n.local.Subscribe()
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

// Close stops listening and closes local listeners. database stays open.
func (n *PostgresNotifier) Close() error {
	n.cancel()
	<-n.done
	n.local.Close()
	if err := n.listener.Close(context.Background()); err != nil {
		return fmt.Errorf("closing change listener: %w", err)
	}
	return nil
}
