package live

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, s *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestTopicPublishFansOut(t *testing.T) {
	topic := NewTopic[int]()
	a := topic.Subscribe()
	b := topic.Subscribe()

	topic.Publish(7)

	assert.Equal(t, 7, receive(t, a))
	assert.Equal(t, 7, receive(t, b))
	assert.Equal(t, 2, topic.Len())
}

func TestTopicConflatesSlowSubscriber(t *testing.T) {
	topic := NewTopic[int]()
	s := topic.Subscribe()

	for i := 1; i <= 100; i++ {
		topic.Publish(i)
	}

	assert.Equal(t, 100, receive(t, s))
	select {
	case v := <-s.C():
		t.Fatalf("expected empty mailbox, got %d", v)
	default:
	}
}

func TestTopicSubscribeWithPrimesMailbox(t *testing.T) {
	topic := NewTopic[string]()
	s := topic.SubscribeWith("current")

	assert.Equal(t, "current", receive(t, s))

	topic.Publish("next")
	assert.Equal(t, "next", receive(t, s))
}

func TestSubscriptionClose(t *testing.T) {
	topic := NewTopic[int]()
	s := topic.Subscribe()

	s.Close()
	s.Close()

	_, ok := <-s.C()
	assert.False(t, ok)
	assert.Equal(t, 0, topic.Len())

	// Publishing after a subscriber left must not panic.
	topic.Publish(1)
}

func TestTopicClose(t *testing.T) {
	topic := NewTopic[int]()
	s := topic.Subscribe()

	topic.Close()
	topic.Close()

	_, ok := <-s.C()
	assert.False(t, ok)

	// Closing a subscription after its topic closed is a no-op.
	s.Close()

	late := topic.Subscribe()
	_, ok = <-late.C()
	assert.False(t, ok, "subscribing to a closed topic should yield a closed channel")

	primed := topic.SubscribeWith(3)
	_, ok = <-primed.C()
	assert.False(t, ok)
}

func TestTopicConcurrentPublishAndClose(t *testing.T) {
	topic := NewTopic[int]()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		s := topic.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range s.C() {
			}
		}()
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				topic.Publish(j)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	topic.Close()
	wg.Wait()
}

func TestTopicOnLeave(t *testing.T) {
	topic := NewTopic[int]()
	var left []int
	topic.OnLeave(func(remaining int) { left = append(left, remaining) })

	a := topic.Subscribe()
	b := topic.Subscribe()

	a.Close()
	a.Close()
	b.Close()
	assert.Equal(t, []int{1, 0}, left)

	// Closing the topic is not a subscriber leaving.
	topic.Subscribe()
	topic.Close()
	assert.Equal(t, []int{1, 0}, left)
}
