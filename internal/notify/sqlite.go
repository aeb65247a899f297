package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/zaloga/internal/live"
)

// DefaultPollInterval is how often SQLiteNotifier checks for commits.
const DefaultPollInterval = 250 * time.Millisecond

// SQLiteNotifier notices commits made through any other connection to the
// same database file, including other processes. It holds one connection of
// the pool and polls PRAGMA data_version on it.
type SQLiteNotifier struct {
	conn     *sql.Conn
	interval time.Duration
	local    *live.Topic[struct{}]
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Notifier = (*SQLiteNotifier)(nil)

// NewSQLiteNotifier reserves a connection from database and starts polling.
// database must allow more than one open connection.
func NewSQLiteNotifier(ctx context.Context, database *sql.DB, interval time.Duration, logger *slog.Logger) (*SQLiteNotifier, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	conn, err := database.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserving change watch connection: %w", err)
	}
	version, err := dataVersion(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n := &SQLiteNotifier{
		conn:     conn,
		interval: interval,
		local:    live.NewTopic[struct{}](),
		logger:   logger.With("component", "notify", "source", "sqlite"),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go n.poll(pollCtx, version)
	return n, nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading data_version: %w", err)
	}
	return v, nil
}

func (n *SQLiteNotifier) poll(ctx context.Context, last int64) {
	defer close(n.done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err := dataVersion(ctx, n.conn)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.logger.Warn("failed to poll for item changes", "error", err)
			continue
		}
		if v != last {
			last = v
			n.logger.Debug("item table changed on another connection")
			n.local.Publish(struct{}{})
		}
	}
}

// Notify implements Notifier. Other connections pick the commit up through
// data_version, so only local listeners are signalled here.
func (n *SQLiteNotifier) Notify(_ context.Context) error {
	n.local.Publish(struct{}{})
	return nil
}

// Listen implements Notifier.
func (n *SQLiteNotifier) Listen(ctx context.Context) (*live.Subscription[struct{}], error) {
	sub := n.local.Subscribe()
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

// Close stops polling, returns the connection to the pool and closes local
// listeners.
func (n *SQLiteNotifier) Close() error {
	n.cancel()
	<-n.done
	n.local.Close()
	if err := n.conn.Close(); err != nil {
		return fmt.Errorf("releasing change watch connection: %w", err)
	}
	return nil
}
