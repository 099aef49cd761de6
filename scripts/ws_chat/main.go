package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/proto"
)

// Interactive smoke client: generates a throwaway keypair, signs the join
// message, and chats from stdin. Only useful against a server whose token
// check will pass for the generated account.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8888/chat", "WebSocket address")
	creator := flag.String("creator", "0xcafe", "room creator address")
	room := flag.String("room", "vip", "room to join")
	keyHex := flag.String("key", "", "hex ed25519 private key seed (generated if empty)")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	priv, err := loadOrGenerateKey(*keyHex)
	if err != nil {
		return err
	}
	pub := priv.Public().(ed25519.PublicKey)

	creatorAddr, err := chain.ParseAddress(*creator)
	if err != nil {
		return fmt.Errorf("parse creator: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	const fullMessage = "APTOS\nmessage: ws_chat smoke client"
	sig := ed25519.Sign(priv, []byte(fullMessage))

	if err := wsjson.Write(ctx, conn, proto.JoinRequest{
		ChatRoomCreator: creatorAddr,
		ChatRoomName:    *room,
		ChatRoomJoiner:  hex.EncodeToString(pub),
		Signature:       hex.EncodeToString(sig),
		FullMessage:     fullMessage,
	}); err != nil {
		return fmt.Errorf("send join request: %w", err)
	}

	fmt.Printf("Connected to %s as %s in room (%s, %s)\n",
		*addr, chain.DeriveAddress(pub), creatorAddr.HexLiteral(), *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func loadOrGenerateKey(keyHex string) (ed25519.PrivateKey, error) {
	if keyHex == "" {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		return priv, nil
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Type {
		case proto.OutboundTypeJoined:
			var joined proto.JoinedData
			if err := json.Unmarshal(outbound.Data, &joined); err != nil {
				log.Printf("unmarshal joined: %v", err)
				continue
			}
			fmt.Printf("joined; %d others, %d messages of history\n",
				len(joined.Others), len(joined.Messages))
			for _, msg := range joined.Messages {
				fmt.Printf("  %s: %s\n", msg.User.Address, msg.Body)
			}
		case proto.OutboundTypeUserJoined:
			var evt proto.UserJoinedData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal user_joined: %v", err)
				continue
			}
			fmt.Printf("%s joined\n", evt.User.Address)
		case proto.OutboundTypeUserLeft:
			var evt proto.UserLeftData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal user_left: %v", err)
				continue
			}
			fmt.Printf("%s left\n", evt.Address)
		case proto.OutboundTypePosted:
			// Own message confirmed; already on screen.
		case proto.OutboundTypeUserPosted:
			var evt proto.UserPostedData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal user_posted: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.Message.User.Address, evt.Message.Body)
		case proto.OutboundTypeError:
			if outbound.Error != nil {
				fmt.Printf("error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
			}
		case proto.OutboundTypeAlive:
			// Keepalive; nothing to show.
		default:
			log.Printf("unknown outbound type %q", outbound.Type)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		body := strings.TrimSpace(scanner.Text())
		if body == "" {
			continue
		}

		data, err := json.Marshal(proto.PostData{Body: body})
		if err != nil {
			log.Printf("marshal post: %v", err)
			continue
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{
			Type: proto.InboundTypePost,
			Data: data,
		}); err != nil {
			log.Printf("send: %v", err)
			return
		}
	}
}
