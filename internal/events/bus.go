package events

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultBuffer = 32

// Bus fans notifications out to in-process subscribers. A subscriber whose
// buffer is full misses the notification; Notify never blocks.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Notification
	next    uint64
	dropped atomic.Uint64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Notification)}
}

// Subscribe registers a subscriber with the given buffer size (a default when < 1).
// The returned cancel func unregisters and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	ch := make(chan Notification, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Notify implements Notifier
func (b *Bus) Notify(_ context.Context, n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped counts deliveries skipped because a subscriber was full
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
