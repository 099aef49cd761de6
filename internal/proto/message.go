package proto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aptos-labs/hong-bao/internal/chain"
)

// JoinRequest is the first frame of every connection. It carries everything
// needed to prove account ownership and room access in one message.
type JoinRequest struct {
	// Account address of the room creator, hex encoded.
	ChatRoomCreator chain.Address `json:"chat_room_creator"`

	// Name of the room. Unique per creator; on chain this is the
	// collection name of the access token.
	ChatRoomName string `json:"chat_room_name"`

	// Hex-encoded ed25519 public key of the account joining the room.
	ChatRoomJoiner string `json:"chat_room_joiner"`

	// Hex-encoded signature produced by the joiner's wallet over
	// FullMessage.
	Signature string `json:"signature"`

	// The exact message bytes the wallet signed.
	FullMessage string `json:"full_message"`
}

// Inbound is the envelope for frames received after the join request.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeJoin = "join"
	InboundTypePost = "post"

	OutboundTypeJoined     = "joined"
	OutboundTypeUserJoined = "user_joined"
	OutboundTypeUserLeft   = "user_left"
	OutboundTypePosted     = "posted"
	OutboundTypeUserPosted = "user_posted"
	OutboundTypeError      = "error"
	OutboundTypeAlive      = "alive"
)

// PostData is the payload of an inbound post frame.
type PostData struct {
	Body string `json:"body"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// UserPayload identifies a room member on the wire.
type UserPayload struct {
	Address string `json:"address"`
}

// MessagePayload is a chat message on the wire.
type MessagePayload struct {
	ID        uuid.UUID   `json:"id"`
	User      UserPayload `json:"user"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}

// JoinedData confirms admission and carries the room state snapshot.
type JoinedData struct {
	User     UserPayload      `json:"user"`
	Others   []UserPayload    `json:"others"`
	Messages []MessagePayload `json:"messages"`
}

// UserJoinedData notifies members that someone joined.
type UserJoinedData struct {
	User UserPayload `json:"user"`
}

// UserLeftData notifies members that someone disconnected.
type UserLeftData struct {
	Address string `json:"address"`
}

// PostedData confirms a post to its author.
type PostedData struct {
	Message MessagePayload `json:"message"`
}

// UserPostedData carries a message to everyone but its author.
type UserPostedData struct {
	Message MessagePayload `json:"message"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
