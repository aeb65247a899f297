// Package live provides a small in-process publish/subscribe primitive with
// current-value semantics.
package live

import "sync"

// Topic fans published values out to its subscribers. Every subscriber has a
// one-slot mailbox: Publish never blocks, and a newer value replaces one the
// subscriber has not received yet.
type Topic[T any] struct {
	mu      sync.Mutex
	subs    map[*Subscription[T]]struct{}
	closed  bool
	onLeave func(remaining int)
}

// NewTopic creates an open topic with no subscribers.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Publish delivers v to every current subscriber.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	for s := range t.subs {
		s.offer(v)
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed topic returns
// a subscription whose channel is already closed.
func (t *Topic[T]) Subscribe() *Subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribeLocked()
}

// SubscribeWith registers a new subscriber whose mailbox already holds v.
func (t *Topic[T]) SubscribeWith(v T) *Subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.subscribeLocked()
	if !t.closed {
		s.offer(v)
	}
	return s
}

func (t *Topic[T]) subscribeLocked() *Subscription[T] {
	s := &Subscription[T]{ch: make(chan T, 1), topic: t}
	if t.closed {
		close(s.ch)
		return s
	}
	t.subs[s] = struct{}{}
	return s
}

// OnLeave registers fn to run after a subscriber closes its subscription,
// with the number of subscribers left. fn runs without the topic lock held.
func (t *Topic[T]) OnLeave(fn func(remaining int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLeave = fn
}

// Len returns the number of active subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close closes every subscription. Later publishes are dropped.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for s := range t.subs {
		delete(t.subs, s)
		close(s.ch)
	}
}

// Subscription receives values published on a Topic.
type Subscription[T any] struct {
	ch    chan T
	topic *Topic[T]
}

// C returns the delivery channel. It is closed when the subscription or the
// topic is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close detaches the subscription from its topic. It is safe to call more
// than once.
func (s *Subscription[T]) Close() {
	t := s.topic
	t.mu.Lock()
	if _, ok := t.subs[s]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.subs, s)
	close(s.ch)
	onLeave, remaining := t.onLeave, len(t.subs)
	t.mu.Unlock()

	if onLeave != nil {
		onLeave(remaining)
	}
}

// offer must be called with the topic lock held, which makes the publisher
// the only sender on s.ch.
func (s *Subscription[T]) offer(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}
	// Drop the stale value and replace it.
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}
