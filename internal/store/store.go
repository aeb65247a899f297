package store

import (
	"context"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
)

//go:generate mockgen -source=store.go -destination=mocks/item_store_mock.go -package=mocks

// ItemStore is durable storage for items with a live query over all rows.
type ItemStore interface {
	// AllItems starts a live query. The feed emits the full table right
	// away and again after every change.
	AllItems(ctx context.Context) (*Feed, error)
	// InsertItem writes item. A zero ID gets a fresh identity; an existing ID
	// replaces that row.
	InsertItem(ctx context.Context, item model.Item) error
	// DeleteItem removes the row with item's ID. Missing rows are ignored.
	DeleteItem(ctx context.Context, item model.Item) error
}

// Feed is a running live query. Snapshots are ordered by ID.
type Feed struct {
	ch     chan []model.Item
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Snapshots returns the snapshot channel. It is closed when the feed ends.
func (f *Feed) Snapshots() <-chan []model.Item {
	return f.ch
}

// Err returns the query failure that ended the feed, if any. It returns nil
// while the feed is running and after a normal Close.
func (f *Feed) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Close stops the feed and waits for it to end.
func (f *Feed) Close() {
	f.cancel()
	<-f.done
}

// Watch runs query once immediately and again after each change signal from
// n. A change that arrives while the consumer is busy is folded into the
// next query, so slow consumers only ever see the newest table.
func Watch(ctx context.Context, n notify.Notifier, query func(context.Context) ([]model.Item, error)) (*Feed, error) {
	ctx, cancel := context.WithCancel(ctx)

	// Listen before the first query so no change falls in between.
	sub, err := n.Listen(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listening for changes: %w", err)
	}

	f := &Feed{
		ch:     make(chan []model.Item),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(f.ch)
		defer close(f.done)
		defer sub.Close()

		for {
			items, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.err = err
				}
				return
			}

			select {
			case f.ch <- items:
			case <-ctx.Done():
				return
			}

			select {
			case _, ok := <-sub.C():
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return f, nil
}
