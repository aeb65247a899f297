// Package notify broadcasts "the items table changed" signals to live queries.
package notify

import (
	"context"

	"github.com/erazemk/zaloga/internal/live"
)

// Notifier carries table change signals between writers and live queries.
type Notifier interface {
	// Notify announces that the table changed.
	Notify(ctx context.Context) error
	// Listen subscribes to change signals until ctx is done or the
	// subscription is closed.
	Listen(ctx context.Context) (*live.Subscription[struct{}], error)
	Close() error
}

// Local is an in-process Notifier.
type Local struct {
	topic *live.Topic[struct{}]
}

var _ Notifier = (*Local)(nil)

// NewLocal creates an in-process notifier.
func NewLocal() *Local {
	return &Local{topic: live.NewTopic[struct{}]()}
}

// Notify implements Notifier.
func (l *Local) Notify(_ context.Context) error {
	l.topic.Publish(struct{}{})
	return nil
}

// Listen implements Notifier.
func (l *Local) Listen(ctx context.Context) (*live.Subscription[struct{}], error) {
	sub := l.topic.Subscribe()
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

// Close implements Notifier.
func (l *Local) Close() error {
	l.topic.Close()
	return nil
}
