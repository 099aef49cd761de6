package chat

import (
	"context"
	"strings"
	"testing"
	"time"
)

func startRoom(t *testing.T, opts Options) *Room {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	room := NewRoom(opts)
	go room.Run(ctx)
	return room
}

func TestRoomJoinAndPost(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)

	room.Submit(join(alice))
	joined := mustParcel(t, sub.C, OutputJoined)
	if joined.Target != alice {
		t.Fatalf("joined addressed to %s, want %s", joined.Target, alice)
	}
	if joined.Output.User.Address != alice {
		t.Fatalf("joined user is %s, want %s", joined.Output.User.Address, alice)
	}
	if len(joined.Output.Others) != 0 || len(joined.Output.Messages) != 0 {
		t.Fatalf("first join should see an empty room, got %+v", joined.Output)
	}

	room.Submit(post(alice, "Hello"))
	posted := mustParcel(t, sub.C, OutputPosted)
	if posted.Target != alice {
		t.Fatalf("posted addressed to %s, want %s", posted.Target, alice)
	}
	if posted.Output.Message.Body != "Hello" {
		t.Fatalf("unexpected message body %q", posted.Output.Message.Body)
	}
	if posted.Output.Message.User.Address != alice {
		t.Fatalf("message author is %s, want %s", posted.Output.Message.User.Address, alice)
	}
}

func TestRoomFeedPreservesSubmissionOrder(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	room.Submit(join(alice))

	bodies := []string{"one", "two", "three", "four", "five"}
	for _, body := range bodies {
		room.Submit(post(alice, body))
	}

	for _, want := range bodies {
		posted := mustParcel(t, sub.C, OutputPosted)
		if posted.Output.Message.Body != want {
			t.Fatalf("feed out of order: got %q, want %q", posted.Output.Message.Body, want)
		}
	}

	// A later joiner's history snapshot preserves the same order.
	bob := testAddr(2)
	room.Submit(join(bob))
	for {
		p := mustParcel(t, sub.C, OutputJoined)
		if p.Target != bob {
			continue
		}
		if len(p.Output.Messages) != len(bodies) {
			t.Fatalf("history has %d messages, want %d", len(p.Output.Messages), len(bodies))
		}
		for i, want := range bodies {
			if p.Output.Messages[i].Body != want {
				t.Fatalf("history[%d] = %q, want %q", i, p.Output.Messages[i].Body, want)
			}
		}
		return
	}
}

func TestRoomRepeatedJoinIsIdempotentButReannounced(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	bob := testAddr(2)

	room.Submit(join(alice))
	room.Submit(join(bob))
	mustParcel(t, sub.C, OutputUserJoined)

	// Second join from bob: membership does not duplicate, but both the
	// fresh joined and the user_joined announcement are emitted again.
	room.Submit(join(bob))

	rejoined := mustParcel(t, sub.C, OutputJoined)
	if rejoined.Target != bob {
		t.Fatalf("joined addressed to %s, want %s", rejoined.Target, bob)
	}
	if len(rejoined.Output.Others) != 1 || rejoined.Output.Others[0].Address != alice {
		t.Fatalf("rejoin should still see exactly alice as other, got %+v", rejoined.Output.Others)
	}

	again := mustParcel(t, sub.C, OutputUserJoined)
	if again.Target != alice || again.Output.User.Address != bob {
		t.Fatalf("unexpected user_joined parcel: %+v", again)
	}
}

func TestRoomPostBeforeJoin(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	room.Submit(post(alice, "sneaky"))

	errParcel := mustParcel(t, sub.C, OutputError)
	if errParcel.Target != alice {
		t.Fatalf("error addressed to %s, want %s", errParcel.Target, alice)
	}
	if errParcel.Output.Error.Code != ErrCodeNotJoined {
		t.Fatalf("error code %q, want %q", errParcel.Output.Error.Code, ErrCodeNotJoined)
	}

	// The rejected post must not have touched the feed.
	room.Submit(join(alice))
	joined := mustParcel(t, sub.C, OutputJoined)
	if len(joined.Output.Messages) != 0 {
		t.Fatalf("feed should be empty, got %d messages", len(joined.Output.Messages))
	}
}

func TestRoomMessageBodyValidation(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	room.Submit(join(alice))
	mustParcel(t, sub.C, OutputJoined)

	room.Submit(post(alice, ""))
	empty := mustParcel(t, sub.C, OutputError)
	if empty.Output.Error.Code != ErrCodeInvalidMessageBody {
		t.Fatalf("empty body: error code %q, want %q", empty.Output.Error.Code, ErrCodeInvalidMessageBody)
	}

	room.Submit(post(alice, strings.Repeat("a", MaxMessageBodyLength+1)))
	tooLong := mustParcel(t, sub.C, OutputError)
	if tooLong.Output.Error.Code != ErrCodeInvalidMessageBody {
		t.Fatalf("long body: error code %q, want %q", tooLong.Output.Error.Code, ErrCodeInvalidMessageBody)
	}

	// Exactly at the limit is accepted.
	room.Submit(post(alice, strings.Repeat("a", MaxMessageBodyLength)))
	posted := mustParcel(t, sub.C, OutputPosted)
	if len(posted.Output.Message.Body) != MaxMessageBodyLength {
		t.Fatalf("accepted body length %d, want %d", len(posted.Output.Message.Body), MaxMessageBodyLength)
	}

	room.Submit(join(testAddr(2)))
	for {
		p := mustParcel(t, sub.C, OutputJoined)
		if p.Target == testAddr(2) {
			if len(p.Output.Messages) != 1 {
				t.Fatalf("feed has %d messages, want 1", len(p.Output.Messages))
			}
			return
		}
	}
}

func TestRoomTargetsAndSnapshots(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	bob := testAddr(2)

	room.Submit(join(alice))
	mustParcel(t, sub.C, OutputJoined)

	room.Submit(join(bob))

	joined := mustParcel(t, sub.C, OutputJoined)
	if joined.Target != bob {
		t.Fatalf("joined addressed to %s, want %s", joined.Target, bob)
	}
	if len(joined.Output.Others) != 1 || joined.Output.Others[0].Address != alice {
		t.Fatalf("bob should see alice as the only other user, got %+v", joined.Output.Others)
	}

	userJoined := mustParcel(t, sub.C, OutputUserJoined)
	if userJoined.Target != alice {
		t.Fatalf("user_joined addressed to %s, want %s", userJoined.Target, alice)
	}
	if userJoined.Output.User.Address != bob {
		t.Fatalf("user_joined announces %s, want %s", userJoined.Output.User.Address, bob)
	}

	// Posts are confirmed to the author and fanned out to everyone else.
	room.Submit(post(alice, "hi"))
	posted := mustParcel(t, sub.C, OutputPosted)
	if posted.Target != alice {
		t.Fatalf("posted addressed to %s, want %s", posted.Target, alice)
	}
	userPosted := mustParcel(t, sub.C, OutputUserPosted)
	if userPosted.Target != bob || userPosted.Output.Message.Body != "hi" {
		t.Fatalf("unexpected user_posted parcel: %+v", userPosted)
	}
}

func TestRoomDisconnect(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	bob := testAddr(2)

	room.Submit(join(alice))
	room.Submit(join(bob))
	mustParcel(t, sub.C, OutputUserJoined)

	room.OnDisconnect(alice)

	left := mustParcel(t, sub.C, OutputUserLeft)
	if left.Target != bob {
		t.Fatalf("user_left addressed to %s, want %s", left.Target, bob)
	}
	if left.Output.Left != alice {
		t.Fatalf("user_left announces %s, want %s", left.Output.Left, alice)
	}

	// Alice is gone from subsequent snapshots.
	carol := testAddr(3)
	room.Submit(join(carol))
	for {
		p := mustParcel(t, sub.C, OutputJoined)
		if p.Target != carol {
			continue
		}
		if len(p.Output.Others) != 1 || p.Output.Others[0].Address != bob {
			t.Fatalf("carol should see only bob, got %+v", p.Output.Others)
		}
		return
	}
}

func TestRoomDisconnectUnknownAddressIsSilent(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	room.Submit(join(testAddr(1)))
	mustParcel(t, sub.C, OutputJoined)

	room.OnDisconnect(testAddr(9))
	mustQuiet(t, sub.C, 100*time.Millisecond)
}

func TestRoomConcurrentDisconnects(t *testing.T) {
	room := startRoom(t, Options{})
	sub := room.Subscribe()
	defer sub.Cancel()

	// Many members plus an in-flight post contend with concurrent
	// disconnects on the membership map.
	survivor := testAddr(100)
	room.Submit(join(survivor))
	mustParcel(t, sub.C, OutputJoined)

	const n = 16
	for i := 0; i < n; i++ {
		room.Submit(join(testAddr(byte(i + 1))))
	}

	// Disconnects must not start before the run loop has admitted everyone,
	// or a disconnect could beat its member's join.
	deadline := time.Now().Add(2 * time.Second)
	for {
		room.mu.RLock()
		count := len(room.members)
		room.mu.RUnlock()
		if count == n+1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("room admitted %d members, want %d", count, n+1)
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func(b byte) {
			room.OnDisconnect(testAddr(b))
			done <- struct{}{}
		}(byte(i + 1))
	}
	room.Submit(post(survivor, "racing"))
	for i := 0; i < n; i++ {
		<-done
	}

	// Membership converged: a fresh joiner sees only the survivor.
	late := testAddr(101)
	room.Submit(join(late))
	for {
		p := mustParcel(t, sub.C, OutputJoined)
		if p.Target != late {
			continue
		}
		if len(p.Output.Others) != 1 || p.Output.Others[0].Address != survivor {
			t.Fatalf("late joiner should see only the survivor, got %+v", p.Output.Others)
		}
		return
	}
}

func TestRoomAliveTick(t *testing.T) {
	room := startRoom(t, Options{AliveInterval: 20 * time.Millisecond})
	sub := room.Subscribe()
	defer sub.Cancel()

	alice := testAddr(1)
	room.Submit(join(alice))

	alive := mustParcel(t, sub.C, OutputAlive)
	if alive.Target != alice {
		t.Fatalf("alive addressed to %s, want %s", alive.Target, alice)
	}
}

func TestRoomNoBroadcastWithoutSubscribers(t *testing.T) {
	room := startRoom(t, Options{})

	// No subscribers yet: processing must not block or panic.
	room.Submit(join(testAddr(1)))
	room.Submit(post(testAddr(1), "into the void"))

	sub := room.Subscribe()
	defer sub.Cancel()

	// Only events broadcast after subscribing are visible.
	mustQuiet(t, sub.C, 100*time.Millisecond)
}
