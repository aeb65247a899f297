package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
)

// SQLStore keeps items in the items table of a SQLite or PostgreSQL database.
type SQLStore struct {
	db       *db.DB
	notifier notify.Notifier
	logger   *slog.Logger
}

var _ ItemStore = (*SQLStore)(nil)

// NewSQLStore creates a store on database. A nil notifier limits change
// signals to this store's own live queries.
func NewSQLStore(database *db.DB, notifier notify.Notifier, logger *slog.Logger) *SQLStore {
	if notifier == nil {
		notifier = notify.NewLocal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:       database,
		notifier: notifier,
		logger:   logger.With("component", "store"),
	}
}

// AllItems implements ItemStore.
func (s *SQLStore) AllItems(ctx context.Context) (*Feed, error) {
	return Watch(ctx, s.notifier, s.ListItems)
}

// ListItems returns all items ordered by ID.
func (s *SQLStore) ListItems(ctx context.Context) ([]model.Item, error) {
	query, args, err := s.db.Builder().
		Select("id", "name", "quantity").
		From("items").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// InsertItem implements ItemStore.
func (s *SQLStore) InsertItem(ctx context.Context, item model.Item) error {
	q := s.db.Builder().Insert("items")
	if item.ID == 0 {
		q = q.Columns("name", "quantity").Values(item.Name, item.Quantity)
	} else {
		q = q.Columns("id", "name", "quantity").
			Values(item.ID, item.Name, item.Quantity).
			Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name, quantity = excluded.quantity")
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	// Explicit IDs bypass the identity sequence on PostgreSQL. Only move it
	// forward so deleted IDs are never handed out again.
	if item.ID != 0 && s.db.Dialect == db.Postgres {
		if _, err := s.db.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('items', 'id'), $1::bigint)
			 WHERE $1::bigint > COALESCE(pg_sequence_last_value(pg_get_serial_sequence('items', 'id')::regclass), 0)`,
			item.ID,
		); err != nil {
			return fmt.Errorf("advancing item id sequence: %w", err)
		}
	}

	s.changed(ctx)
	return nil
}

// DeleteItem implements ItemStore.
func (s *SQLStore) DeleteItem(ctx context.Context, item model.Item) error {
	query, args, err := s.db.Builder().
		Delete("items").
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if n > 0 {
		s.changed(ctx)
	}
	return nil
}

// changed signals live queries. The write is already durable, so a failed
// signal is logged rather than returned.
func (s *SQLStore) changed(ctx context.Context) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("failed to announce item change", "error", err)
	}
}
