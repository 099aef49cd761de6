package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/metrics"
)

// RoomID identifies a room: the account that created it plus the room name.
// Two joins with the same pair must resolve to the same Room.
type RoomID struct {
	Creator chain.Address
	Name    string
}

// Registry owns the RoomID to Room mapping. Rooms are created lazily on
// first join and never removed for the life of the process.
type Registry struct {
	ctx  context.Context
	opts Options
	log  *zerolog.Logger

	mu    sync.Mutex
	rooms map[RoomID]*Room
}

// NewRegistry builds a registry. ctx bounds the lifetime of every room run
// loop the registry starts.
func NewRegistry(ctx context.Context, opts Options, logger *zerolog.Logger) *Registry {
	return &Registry{
		ctx:   ctx,
		opts:  opts,
		log:   logger,
		rooms: make(map[RoomID]*Room),
	}
}

// GetOrCreate returns the room for id, creating and starting it if this is
// the first join. Lookup-or-insert is one critical section so concurrent
// first-joiners converge on a single room.
func (g *Registry) GetOrCreate(id RoomID) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[id]; ok {
		return room
	}

	room := NewRoom(g.opts)
	g.rooms[id] = room
	go g.runRoom(id, room)

	metrics.RoomsCreated.Inc()
	g.log.Info().
		Str("room_creator", id.Creator.Hex()).
		Str("room_name", id.Name).
		Msg("room created")

	return room
}

// Len reports how many rooms exist.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// runRoom hosts one room's run loop. A panic in one room must not take down
// the others or the listener.
func (g *Registry) runRoom(id RoomID, room *Room) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error().
				Interface("panic", rec).
				Str("room_creator", id.Creator.Hex()).
				Str("room_name", id.Name).
				Msg("room loop panicked")
		}
	}()

	room.Run(g.ctx)
}
