// Package observable provides a value cell with synchronous reads and an
// ordered list of subscribers.
package observable

import "sync"

// Value holds a current value of type T and notifies subscribers on every
// publication, in subscription order.
//
// Notifications are serialized: a subscriber never observes two publications
// concurrently, and observes them in the order they were made. Subscribers run
// on the publishing goroutine and must not publish to the same Value.
type Value[T any] struct {
	current T
	subs    []subscription[T]
	nextID  uint64
	mu      sync.RWMutex
	notify  sync.Mutex
}

type subscription[T any] struct {
	fn func(T)
	id uint64
}

// New creates a cell holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set stores next and notifies subscribers.
func (v *Value[T]) Set(next T) {
	v.Publish(func() T { return next })
}

// Publish computes the next value while holding the notification lock,
// stores it, and notifies subscribers.
//
// Computing inside the lock means that when several goroutines publish
// snapshots of some external state, the last notification always carries the
// latest snapshot.
func (v *Value[T]) Publish(compute func() T) {
	v.notify.Lock()
	defer v.notify.Unlock()

	next := compute()

	v.mu.Lock()
	v.current = next
	subs := make([]subscription[T], len(v.subs))
	copy(subs, v.subs)
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(next)
	}
}

// Subscribe registers fn for future publications and returns a function that
// removes it. When replay is true, fn is first called with the current value.
func (v *Value[T]) Subscribe(fn func(T), replay bool) (unsubscribe func()) {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	v.nextID++
	id := v.nextID
	v.subs = append(v.subs, subscription[T]{fn: fn, id: id})
	current := v.current
	v.mu.Unlock()

	if replay {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			for i, s := range v.subs {
				if s.id == id {
					v.subs = append(v.subs[:i:i], v.subs[i+1:]...)
					return
				}
			}
		})
	}
}
