package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/zaloga/internal/live"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ErrClosed is returned for mutations submitted after Close.
var ErrClosed = errors.New("inventory closed")

// Option configures a StateHolder.
type Option func(*StateHolder)

// WithLogger sets the logger used for failed mutations and feed errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *StateHolder) { h.logger = logger }
}

// WithMetrics records writes, snapshot sizes and observer counts.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(h *StateHolder) { h.metrics = m }
}

// StateHolder keeps the latest item snapshot and runs mutations in a scope it
// owns. The current value only changes when the store emits.
type StateHolder struct {
	repo    *Repository
	logger  *slog.Logger
	metrics *metrics.StoreMetrics

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu    sync.RWMutex
	items []model.Item
	err   error
	topic *live.Topic[[]model.Item]

	ready     chan struct{}
	readyOnce sync.Once

	scopeMu  sync.Mutex
	closed   bool
	closeErr error
	shutdown chan struct{}
}

// NewStateHolder subscribes to the repository's live query. The scope lives
// until ctx is done or Close is called.
func NewStateHolder(ctx context.Context, repo *Repository, opts ...Option) (*StateHolder, error) {
	h := &StateHolder{
		repo:     repo,
		logger:   slog.Default(),
		items:    []model.Item{},
		topic:    live.NewTopic[[]model.Item](),
		ready:    make(chan struct{}),
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "inventory")
	h.topic.OnLeave(h.metrics.SetObservers)
	h.ctx, h.cancel = context.WithCancel(ctx)

	feed, err := repo.AllItems(h.ctx)
	if err != nil {
		h.cancel()
		return nil, fmt.Errorf("subscribing to items: %w", err)
	}

	h.group.Go(func() error { return h.collect(feed) })
	return h, nil
}

func (h *StateHolder) collect(feed *store.Feed) error {
	defer feed.Close()
	defer h.markReady()

	for items := range feed.Snapshots() {
		h.publish(items)
	}

	err := feed.Err()
	if err == nil {
		return nil
	}

	h.logger.Error("live item query failed", "error", err)
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	// Observers see their channel close; Err explains why.
	h.topic.Close()
	return err
}

func (h *StateHolder) publish(items []model.Item) {
	if items == nil {
		items = []model.Item{}
	}

	// Holding the lock while publishing keeps Observe from priming a new
	// observer with a value older than one it is then sent.
	h.mu.Lock()
	h.items = items
	h.topic.Publish(slices.Clone(items))
	h.mu.Unlock()

	h.metrics.SetItems(len(items))
	h.metrics.SetObservers(h.topic.Len())
	h.markReady()
}

func (h *StateHolder) markReady() {
	h.readyOnce.Do(func() { close(h.ready) })
}

// Ready is closed once the first snapshot has arrived, or the live query
// ended without one.
func (h *StateHolder) Ready() <-chan struct{} {
	return h.ready
}

// Items returns a copy of the current snapshot, ordered by ID.
func (h *StateHolder) Items() []model.Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.items)
}

// Observe subscribes to the current value. The subscription receives the
// current snapshot right away and every later one. Slices delivered to
// observers are shared and must not be modified.
func (h *StateHolder) Observe() *live.Subscription[[]model.Item] {
	h.mu.RLock()
	sub := h.topic.SubscribeWith(slices.Clone(h.items))
	h.mu.RUnlock()

	h.metrics.SetObservers(h.topic.Len())
	return sub
}

// Err returns the error that ended the live query, if any.
func (h *StateHolder) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// AddItem inserts a new item with a store-assigned ID.
func (h *StateHolder) AddItem(name string, quantity int) *Task {
	item := model.Item{Name: name, Quantity: quantity}
	return h.submit("insert", func(ctx context.Context) error {
		return h.repo.Insert(ctx, item)
	})
}

// DeleteItem removes the row with item's ID.
func (h *StateHolder) DeleteItem(item model.Item) *Task {
	return h.submit("delete", func(ctx context.Context) error {
		return h.repo.Delete(ctx, item)
	})
}

func (h *StateHolder) submit(op string, fn func(context.Context) error) *Task {
	t := newTask()

	h.scopeMu.Lock()
	defer h.scopeMu.Unlock()

	if h.closed {
		t.finish(ErrClosed)
		return t
	}

	h.group.Go(func() error {
		err := fn(h.ctx)
		h.metrics.ObserveWrite(op, err)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			h.logger.Warn("item mutation cancelled", "op", op)
		default:
			h.logger.Error("item mutation failed", "op", op, "error", err)
		}
		t.finish(err)
		// Mutation errors belong to the task, not the scope.
		return nil
	})
	return t
}

// Close cancels in-flight mutations, ends the live query and closes every
// observer. It waits for all work to stop and returns the live query's
// failure, if there was one. Calling Close again returns the same result.
func (h *StateHolder) Close() error {
	h.scopeMu.Lock()
	if h.closed {
		h.scopeMu.Unlock()
		<-h.shutdown
		return h.closeErr
	}
	h.closed = true
	h.scopeMu.Unlock()

	h.cancel()
	h.closeErr = h.group.Wait()
	h.topic.Close()
	h.metrics.SetObservers(0)
	close(h.shutdown)
	return h.closeErr
}
