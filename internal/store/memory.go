package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
)

// MemoryStore is a non-durable ItemStore used by tests.
type MemoryStore struct {
	mu       sync.Mutex
	items    map[int64]model.Item
	nextID   int64
	notifier *notify.Local
}

var _ ItemStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[int64]model.Item),
		nextID:   1,
		notifier: notify.NewLocal(),
	}
}

// AllItems implements ItemStore.
func (s *MemoryStore) AllItems(ctx context.Context) (*Feed, error) {
	return Watch(ctx, s.notifier, s.list)
}

func (s *MemoryStore) list(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b model.Item) int { return cmp.Compare(a.ID, b.ID) })
	return items, nil
}

// InsertItem implements ItemStore.
func (s *MemoryStore) InsertItem(ctx context.Context, item model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if item.ID == 0 {
		item.ID = s.nextID
	}
	s.items[item.ID] = item
	if item.ID >= s.nextID {
		s.nextID = item.ID + 1
	}
	s.mu.Unlock()

	return s.notifier.Notify(ctx)
}

// DeleteItem implements ItemStore.
func (s *MemoryStore) DeleteItem(ctx context.Context, item model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, ok := s.items[item.ID]
	delete(s.items, item.ID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return s.notifier.Notify(ctx)
}
