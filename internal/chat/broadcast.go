package chat

import (
	"sync"

	"github.com/aptos-labs/hong-bao/internal/metrics"
)

// subscriptionBuffer bounds how many parcels a slow subscriber can lag
// behind before it starts losing the oldest ones.
const subscriptionBuffer = 16

// Subscription is one subscriber's view of a room's broadcast output.
type Subscription struct {
	// C yields every parcel broadcast after Subscribe, oldest first.
	// Parcels are dropped, not delivered late, once the buffer is full.
	C <-chan OutputParcel

	cancel func()
}

// Cancel detaches the subscription from the broadcaster. Safe to call more
// than once.
func (s *Subscription) Cancel() {
	s.cancel()
}

// broadcaster fans parcels out to any number of subscribers. Delivery is
// lossy: a subscriber that does not keep up loses its oldest buffered
// parcels rather than blocking the sender or its peers.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan OutputParcel
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan OutputParcel)}
}

func (b *broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan OutputParcel, subscriptionBuffer)
	b.subs[id] = ch

	var once sync.Once
	return &Subscription{
		C: ch,
		cancel: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.subs, id)
				b.mu.Unlock()
			})
		},
	}
}

// Send delivers p to every current subscriber. A no-op with no subscribers.
func (b *broadcaster) Send(p OutputParcel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- p:
			continue
		default:
		}
		// Buffer full: evict the oldest parcel and retry once. The
		// subscriber may have drained concurrently, so the retry can
		// still race; losing the new parcel instead is acceptable.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
		metrics.BroadcastDropped.Inc()
	}
}

func (b *broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
