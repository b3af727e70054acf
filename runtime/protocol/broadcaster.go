package protocol

import "sync"

// defaultSubscriberBuffer bounds how far a slow subscriber may lag before
// the Broadcaster starts dropping events for it rather than blocking the
// producer. Status events are coalesced at the source (only the latest
// AgentStatus matters to a late subscriber), so a small buffer suffices.
const defaultSubscriberBuffer = 16

// Broadcaster fans a single producer's values out to any number of
// subscribers without ever blocking the producer: a subscriber that falls
// behind has its oldest buffered value dropped to make room for the new
// one, rather than stalling the sender. This mirrors how a status-watch
// channel should behave when readers come and go at their own pace.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
	last T
	have bool
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new receiver and returns its channel along with an
// unsubscribe function. If a value has already been published, the new
// subscriber is primed with it immediately so late joiners see current
// state without waiting for the next publish.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan T, defaultSubscriberBuffer)
	if b.have {
		ch <- b.last
	}
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish sends v to every current subscriber. A subscriber whose buffer is
// full has its oldest pending value discarded to make room; Publish itself
// never blocks.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = v
	b.have = true
	for _, ch := range b.subs {
		for {
			select {
			case ch <- v:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close closes and removes every current subscriber channel. The
// Broadcaster may be reused afterward; new Subscribe calls still work.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
