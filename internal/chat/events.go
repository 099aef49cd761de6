package chat

import "github.com/aptos-labs/hong-bao/internal/chain"

// InputKind describes what a connection wants the room to do.
type InputKind int

const (
	// InputJoin admits the sender into the room.
	InputJoin InputKind = iota
	// InputPost appends a message to the room feed.
	InputPost
)

// Input is an action requested by a connection.
type Input struct {
	Kind InputKind
	Body string
}

// InputParcel pairs an input with the authenticated address that sent it.
type InputParcel struct {
	Address chain.Address
	Input   Input
}

// OutputKind is a notification a room emits to its subscribers.
type OutputKind int

const (
	// OutputJoined confirms admission to the joiner, with a state snapshot.
	OutputJoined OutputKind = iota
	// OutputUserJoined notifies members that someone else joined.
	OutputUserJoined
	// OutputUserLeft notifies members that someone disconnected.
	OutputUserLeft
	// OutputPosted confirms a post to its author.
	OutputPosted
	// OutputUserPosted carries a post to everyone but its author.
	OutputUserPosted
	// OutputError reports a room-level protocol error to one member.
	OutputError
	// OutputAlive is the periodic keepalive.
	OutputAlive
)

// Error codes carried by OutputError.
const (
	ErrCodeNotJoined          = "not_joined"
	ErrCodeInvalidMessageBody = "invalid_message_body"
)

// RoomError wraps a code and human-readable message.
type RoomError struct {
	Code    string
	Message string
}

func (e *RoomError) Error() string {
	return e.Message
}

// Output describes what happened in a room. Which fields are set depends on
// Kind.
type Output struct {
	Kind     OutputKind
	User     User          // Joined, UserJoined
	Others   []User        // Joined
	Messages []Message     // Joined
	Message  Message       // Posted, UserPosted
	Left     chain.Address // UserLeft
	Error    *RoomError    // Error
}

// OutputParcel pairs an output with the address it is addressed to.
// Connections drop parcels whose target is not their own address.
type OutputParcel struct {
	Target chain.Address
	Output Output
}
