package http

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/aptos-labs/hong-bao/internal/auth"
	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/chat"
	"github.com/aptos-labs/hong-bao/internal/config"
	"github.com/aptos-labs/hong-bao/internal/proto"
)

// fakeTokenSource grants the same token set to every account.
type fakeTokenSource struct {
	tokens []chain.TokenOwnership
	err    error
}

func (f *fakeTokenSource) TokensOnAccount(context.Context, chain.Address) ([]chain.TokenOwnership, error) {
	return f.tokens, f.err
}

// testCreator is the room creator used throughout the transport tests.
func testCreator(t *testing.T) chain.Address {
	t.Helper()

	addr, err := chain.ParseAddress("0xcafe")
	if err != nil {
		t.Fatalf("parse creator: %v", err)
	}
	return addr
}

// vipToken grants access to the (testCreator, "vip") room.
func vipToken(t *testing.T) chain.TokenOwnership {
	t.Helper()

	return chain.TokenOwnership{
		CreatorAddress: testCreator(t).HexLiteral(),
		CollectionName: "vip",
	}
}

func startTestServer(t *testing.T, tokens chain.TokenSource) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := chat.NewRegistry(ctx, chat.Options{}, &logger)
	gate := auth.NewGate(tokens, &logger)

	server := NewServer(registry, gate, config.Config{
		ListenAddress:     "127.0.0.1",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

// joiner is one test client identity with its own keypair.
type joiner struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey

	// Address is the account derived from pub.
	Address chain.Address
}

func newJoiner(t *testing.T) *joiner {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &joiner{pub: pub, priv: priv, Address: chain.DeriveAddress(pub)}
}

// joinRequest builds a correctly signed handshake for the given room.
func (j *joiner) joinRequest(t *testing.T, creator chain.Address, room string) proto.JoinRequest {
	t.Helper()

	const msg = "APTOS\nmessage: prove account ownership"
	sig := ed25519.Sign(j.priv, []byte(msg))
	return proto.JoinRequest{
		ChatRoomCreator: creator,
		ChatRoomName:    room,
		ChatRoomJoiner:  hex.EncodeToString(j.pub),
		Signature:       hex.EncodeToString(sig),
		FullMessage:     msg,
	}
}

func dialChat(ctx context.Context, t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/chat"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial chat: %v", err)
	}
	t.Cleanup(func() {
		conn.Close(websocket.StatusNormalClosure, "done")
	})
	return conn
}

// connect dials, performs the handshake, and waits for the joined frame.
func connect(ctx context.Context, t *testing.T, ts *httptest.Server, j *joiner, creator chain.Address, room string) (*websocket.Conn, proto.JoinedData) {
	t.Helper()

	conn := dialChat(ctx, t, ts)
	if err := wsjson.Write(ctx, conn, j.joinRequest(t, creator, room)); err != nil {
		t.Fatalf("send handshake: %v", err)
	}

	frame := mustFrame(ctx, t, conn, proto.OutboundTypeJoined)
	var joined proto.JoinedData
	if err := json.Unmarshal(frame.Data, &joined); err != nil {
		t.Fatalf("unmarshal joined data: %v", err)
	}
	return conn, joined
}

// outboundFrame mirrors proto.Outbound with raw payload bytes for tests.
type outboundFrame struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// mustFrame reads frames, skipping keepalives, until one of the wanted type
// arrives.
func mustFrame(ctx context.Context, t *testing.T, conn *websocket.Conn, wantType string) outboundFrame {
	t.Helper()

	for {
		var frame outboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read frame while waiting for %q: %v", wantType, err)
		}
		if frame.Type == proto.OutboundTypeAlive && wantType != proto.OutboundTypeAlive {
			continue
		}
		if frame.Type == wantType {
			return frame
		}
		t.Fatalf("got frame type %q, want %q", frame.Type, wantType)
	}
}

func sendPost(ctx context.Context, t *testing.T, conn *websocket.Conn, body string) {
	t.Helper()

	data, err := json.Marshal(proto.PostData{Body: body})
	if err != nil {
		t.Fatalf("marshal post data: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypePost, Data: data}); err != nil {
		t.Fatalf("send post: %v", err)
	}
}
