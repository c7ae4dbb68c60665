package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the emission hook's envelope. The runtime publishes its block,
// run, and config reports through it; the printer and the journal recorder
// subscribe. Data holds one of the runtime's report structs.
//
// Contract:
//   - Publish never blocks, so a tick callback can emit while holding the
//     runtime lock.
//   - Slow subscribers lose events rather than stall the publisher.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Stats is a point-in-time delivery counter snapshot.
type Stats struct {
	Published uint64
	Dropped   uint64
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
	Stats() Stats
}

// New returns an in-memory fanout bus. It owns no goroutines; delivery
// happens on the publisher's stack.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu        sync.RWMutex
	subs      map[uint64]chan Event
	seq       atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.published.Add(1)

	// Snapshot subscribers so Publish doesn't hold the lock while sending.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery; a full buffer is a drop. A concurrent
		// unsubscribe can close the channel mid-send, hence the recover.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
				b.dropped.Add(1)
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}

func (b *memBus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
	}
}
