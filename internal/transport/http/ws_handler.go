package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/aptos-labs/hong-bao/internal/auth"
	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/chat"
	"github.com/aptos-labs/hong-bao/internal/metrics"
	"github.com/aptos-labs/hong-bao/internal/proto"
)

const (
	// maxFrameSize caps a single websocket frame.
	maxFrameSize = 65536

	// inboundMinInterval is the minimum spacing between inbound events
	// forwarded to a room from one connection.
	inboundMinInterval = 300 * time.Millisecond
)

// errNonTextFrame ends the inbound stream on the first non-text frame.
var errNonTextFrame = errors.New("received a non-text frame")

// WSHandler upgrades chat connections, gates them, and drives the two pumps
// between the socket and the room.
type WSHandler struct {
	registry *chat.Registry
	gate     *auth.Gate
	log      *zerolog.Logger
}

// NewWSHandler builds the websocket handler for the /chat endpoint.
func NewWSHandler(registry *chat.Registry, gate *auth.Gate, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{registry: registry, gate: gate, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(maxFrameSize)
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The first frame must carry the join request: authentication happens
	// in band because it cannot happen before the upgrade completes.
	req, err := h.readJoinRequest(ctx, conn)
	if err != nil {
		h.log.Error().Err(err).Str("event", "error_reading_first_message").Send()
		conn.Close(websocket.StatusPolicyViolation, "expected a join request")
		return
	}

	addr, err := h.gate.Authenticate(ctx, req)
	if err != nil {
		kind := auth.KindBadRequest
		var gateErr *auth.GateError
		if errors.As(err, &gateErr) {
			kind = gateErr.Kind
		}
		metrics.AuthFailures.WithLabelValues(kind.String()).Inc()
		h.log.Error().Err(err).Str("event", "user_forbidden").Send()
		conn.Close(websocket.StatusPolicyViolation, kind.String())
		return
	}

	// The requester proved account ownership and room access. Resolve the
	// room, creating it on first join.
	room := h.registry.GetOrCreate(chat.RoomID{
		Creator: req.ChatRoomCreator,
		Name:    req.ChatRoomName,
	})

	sub := room.Subscribe()
	defer sub.Cancel()

	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	h.log.Info().Str("address", addr.Hex()).Str("event", "connected").Send()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Admission goes through the queue ahead of anything the client sends.
	room.Submit(chat.InputParcel{Address: addr, Input: chat.Input{Kind: chat.InputJoin}})

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, room, addr)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub, addr)
	}()

	err = <-errCh
	cancel() // stop the other pump
	<-errCh

	// Exactly once per connection, whichever pump failed first.
	room.OnDisconnect(addr)
	h.log.Info().Str("address", addr.Hex()).Str("event", "disconnected").Send()

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("address", addr.Hex()).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readJoinRequest blocks on the first frame and parses it as a join request.
func (h *WSHandler) readJoinRequest(ctx context.Context, conn *websocket.Conn) (*proto.JoinRequest, error) {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("receive first message: %w", err)
	}
	if typ != websocket.MessageText {
		return nil, errNonTextFrame
	}

	var req proto.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("deserialize join request: %w", err)
	}
	return &req, nil
}

// readLoop is the inbound pump: text frames only, decoded and tagged with
// the authenticated address, throttled to one event per interval. The first
// transport error, non-text frame, or undecodable payload ends the stream.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, room *chat.Room, addr chain.Address) error {
	var last time.Time
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			return errNonTextFrame
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			return fmt.Errorf("decode inbound frame: %w", err)
		}
		input, err := inboundToInput(inbound)
		if err != nil {
			return err
		}

		if wait := inboundMinInterval - time.Since(last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		last = time.Now()

		room.Submit(chat.InputParcel{Address: addr, Input: input})
	}
}

// writeLoop is the outbound pump: it drains the room subscription, drops
// parcels addressed to other members, and serializes the rest to the socket.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *chat.Subscription, addr chain.Address) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case parcel, ok := <-sub.C:
			if !ok {
				return nil
			}
			if parcel.Target != addr {
				continue
			}
			if err := wsjson.Write(ctx, conn, outboundFromOutput(parcel.Output)); err != nil {
				h.log.Error().Err(err).Str("address", addr.Hex()).Msg("write ws event")
				return err
			}
		}
	}
}
