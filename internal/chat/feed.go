package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/aptos-labs/hong-bao/internal/chain"
)

// User is a room member.
type User struct {
	Address chain.Address
}

// Message is one entry in a room's feed. Immutable once created.
type Message struct {
	ID        uuid.UUID
	User      User
	Body      string
	CreatedAt time.Time
}

// Feed is the append-only message history of a room, in arrival order.
type Feed struct {
	messages []Message
}

func (f *Feed) Add(m Message) {
	f.messages = append(f.messages, m)
}

// Snapshot copies the current history. The caller may hold the result
// without further synchronization.
func (f *Feed) Snapshot() []Message {
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *Feed) Len() int {
	return len(f.messages)
}
