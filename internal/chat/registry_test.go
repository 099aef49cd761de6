package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zerolog.Nop()
	return NewRegistry(ctx, Options{}, &logger)
}

func TestRegistryGetOrCreateReusesRoom(t *testing.T) {
	registry := newTestRegistry(t)

	id := RoomID{Creator: testAddr(1), Name: "vip"}
	first := registry.GetOrCreate(id)
	second := registry.GetOrCreate(id)

	if first != second {
		t.Fatal("same RoomID resolved to two distinct rooms")
	}
	if registry.Len() != 1 {
		t.Fatalf("registry has %d rooms, want 1", registry.Len())
	}
}

func TestRegistryDistinguishesRoomIDs(t *testing.T) {
	registry := newTestRegistry(t)

	base := registry.GetOrCreate(RoomID{Creator: testAddr(1), Name: "vip"})
	otherName := registry.GetOrCreate(RoomID{Creator: testAddr(1), Name: "lounge"})
	otherCreator := registry.GetOrCreate(RoomID{Creator: testAddr(2), Name: "vip"})

	if base == otherName || base == otherCreator || otherName == otherCreator {
		t.Fatal("distinct RoomIDs must resolve to distinct rooms")
	}
	if registry.Len() != 3 {
		t.Fatalf("registry has %d rooms, want 3", registry.Len())
	}
}

func TestRegistryConcurrentFirstJoiners(t *testing.T) {
	registry := newTestRegistry(t)
	id := RoomID{Creator: testAddr(7), Name: "rush"}

	const n = 32
	rooms := make([]*Room, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = registry.GetOrCreate(id)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if rooms[i] != rooms[0] {
			t.Fatal("concurrent first joiners created more than one room")
		}
	}
	if registry.Len() != 1 {
		t.Fatalf("registry has %d rooms, want 1", registry.Len())
	}
}

func TestRegistryStartsRoomRunLoop(t *testing.T) {
	registry := newTestRegistry(t)

	room := registry.GetOrCreate(RoomID{Creator: testAddr(1), Name: "vip"})
	sub := room.Subscribe()
	defer sub.Cancel()

	// The registry already started the run loop; submissions are processed
	// without the caller running anything.
	room.Submit(join(testAddr(3)))
	mustParcel(t, sub.C, OutputJoined)
}
