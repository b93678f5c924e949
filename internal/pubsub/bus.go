// Package pubsub provides a small synchronous publish/subscribe bus.
//
// Components own a Bus rather than embedding emitter behavior, so each
// bus carries exactly one payload type.
package pubsub

import "sync"

// Bus delivers values of type T to registered handlers in subscription order.
// Handlers run synchronously on the publishing goroutine.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber.
// The subscriber list is snapshotted first so handlers may unsubscribe.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Reset drops all subscribers.
func (b *Bus[T]) Reset() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}
