// Package inventory holds the in-memory view of the item table that screens
// and handlers render from.
package inventory

import (
	"context"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Repository is the only path from the state holder to storage. It forwards
// every call unchanged.
type Repository struct {
	store store.ItemStore
}

// NewRepository wraps s.
func NewRepository(s store.ItemStore) *Repository {
	return &Repository{store: s}
}

// AllItems starts a live query over all items.
func (r *Repository) AllItems(ctx context.Context) (*store.Feed, error) {
	return r.store.AllItems(ctx)
}

// Insert stores item, replacing any row with the same ID.
func (r *Repository) Insert(ctx context.Context, item model.Item) error {
	return r.store.InsertItem(ctx, item)
}

// Delete removes the row with item's ID.
func (r *Repository) Delete(ctx context.Context, item model.Item) error {
	return r.store.DeleteItem(ctx, item)
}
