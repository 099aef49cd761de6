package chat

import (
	"context"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, members int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	room := NewRoom(Options{})
	go room.Run(ctx)

	sender := testAddr(255)
	room.Submit(join(sender))

	subs := make([]*Subscription, 0, members)
	for i := 0; i < members; i++ {
		addr := testAddr(byte(i))
		room.Submit(join(addr))
		subs = append(subs, room.Subscribe())
	}

	// Drain every subscription but the first to avoid skew from full
	// buffers dropping parcels.
	target := subs[0]
	for _, sub := range subs[1:] {
		go func(s *Subscription) {
			for range s.C {
			}
		}(sub)
	}
	go func() {
		for range target.C {
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		room.Submit(post(sender, "payload"))
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
