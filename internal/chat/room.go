package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/metrics"
)

// MaxMessageBodyLength is the longest accepted post body, in bytes.
const MaxMessageBodyLength = 256

// Options configures a room.
type Options struct {
	// AliveInterval is the keepalive broadcast period. Zero disables
	// keepalives.
	AliveInterval time.Duration
}

// Room is a single chat room. All state transitions are serialized through
// one queue drained by Run; the only mutation from outside that loop is
// OnDisconnect, which is why members and the feed sit behind mu.
type Room struct {
	opts  Options
	queue *queue
	bcast *broadcaster

	mu      sync.RWMutex
	members map[chain.Address]User
	feed    Feed
}

// NewRoom constructs a room. Run must be started for submitted parcels to be
// processed.
func NewRoom(opts Options) *Room {
	return &Room{
		opts:    opts,
		queue:   newQueue(),
		bcast:   newBroadcaster(),
		members: make(map[chain.Address]User),
	}
}

// Subscribe returns a handle receiving every parcel broadcast from now on,
// addressed to any member. Filtering by target happens at the connection.
func (r *Room) Subscribe() *Subscription {
	return r.bcast.Subscribe()
}

// Submit enqueues a parcel for the run loop. Parcels are processed strictly
// in arrival order across all connections.
func (r *Room) Submit(p InputParcel) {
	r.queue.Push(p)
}

// Run processes parcels one at a time until ctx is cancelled or the queue
// closes. It is the room's only run loop; starting it twice is a bug.
func (r *Room) Run(ctx context.Context) {
	if r.opts.AliveInterval > 0 {
		go r.tickAlive(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-r.queue.out:
			if !ok {
				return
			}
			r.process(p)
		}
	}
}

// OnDisconnect removes addr from the room. Called directly by the closing
// connection, concurrently with the run loop; never routed through the
// queue so that a member that stops reading is removed promptly.
func (r *Room) OnDisconnect(addr chain.Address) {
	r.mu.Lock()
	_, present := r.members[addr]
	delete(r.members, addr)
	r.mu.Unlock()

	if present {
		r.sendIgnored(addr, Output{Kind: OutputUserLeft, Left: addr})
	}
}

func (r *Room) process(p InputParcel) {
	switch p.Input.Kind {
	case InputJoin:
		r.processJoin(p.Address)
	case InputPost:
		r.processPost(p.Address, p.Input.Body)
	}
}

func (r *Room) processJoin(addr chain.Address) {
	user := User{Address: addr}

	r.mu.Lock()
	r.members[addr] = user
	others := make([]User, 0, len(r.members)-1)
	for _, member := range r.members {
		if member.Address != addr {
			others = append(others, member)
		}
	}
	history := r.feed.Snapshot()
	r.mu.Unlock()

	r.sendTargeted(addr, Output{
		Kind:     OutputJoined,
		User:     user,
		Others:   others,
		Messages: history,
	})
	r.sendIgnored(addr, Output{Kind: OutputUserJoined, User: user})
}

func (r *Room) processPost(addr chain.Address, body string) {
	r.mu.RLock()
	user, joined := r.members[addr]
	r.mu.RUnlock()

	if !joined {
		r.sendError(addr, ErrCodeNotJoined, "join the room before posting")
		return
	}
	if len(body) == 0 || len(body) > MaxMessageBodyLength {
		r.sendError(addr, ErrCodeInvalidMessageBody, "message body must be 1-256 characters")
		return
	}

	message := Message{
		ID:        uuid.New(),
		User:      user,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.feed.Add(message)
	r.mu.Unlock()

	metrics.MessagesPosted.Inc()

	r.sendTargeted(addr, Output{Kind: OutputPosted, Message: message})
	r.sendIgnored(addr, Output{Kind: OutputUserPosted, Message: message})
}

func (r *Room) tickAlive(ctx context.Context) {
	ticker := time.NewTicker(r.opts.AliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sendAll(Output{Kind: OutputAlive})
		}
	}
}

// sendTargeted broadcasts output addressed to a single member.
func (r *Room) sendTargeted(addr chain.Address, output Output) {
	if r.bcast.SubscriberCount() == 0 {
		return
	}
	r.bcast.Send(OutputParcel{Target: addr, Output: output})
}

// sendIgnored broadcasts output addressed to every member except one.
func (r *Room) sendIgnored(ignored chain.Address, output Output) {
	if r.bcast.SubscriberCount() == 0 {
		return
	}

	r.mu.RLock()
	targets := make([]chain.Address, 0, len(r.members))
	for addr := range r.members {
		if addr != ignored {
			targets = append(targets, addr)
		}
	}
	r.mu.RUnlock()

	for _, addr := range targets {
		r.bcast.Send(OutputParcel{Target: addr, Output: output})
	}
}

// sendAll broadcasts output addressed to every current member.
func (r *Room) sendAll(output Output) {
	if r.bcast.SubscriberCount() == 0 {
		return
	}

	r.mu.RLock()
	targets := make([]chain.Address, 0, len(r.members))
	for addr := range r.members {
		targets = append(targets, addr)
	}
	r.mu.RUnlock()

	for _, addr := range targets {
		r.bcast.Send(OutputParcel{Target: addr, Output: output})
	}
}

func (r *Room) sendError(addr chain.Address, code, msg string) {
	r.sendTargeted(addr, Output{
		Kind:  OutputError,
		Error: &RoomError{Code: code, Message: msg},
	})
}
