package auth

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aptos-labs/hong-bao/internal/chain"
	"github.com/aptos-labs/hong-bao/internal/proto"
)

// FailureKind separates "fix your request" from "you are not allowed".
type FailureKind int

const (
	// KindBadRequest covers malformed join requests and indexer failures.
	KindBadRequest FailureKind = iota
	// KindNotAccountOwner means the signature did not verify against the
	// declared public key.
	KindNotAccountOwner
	// KindNoAccessToken means the account does not hold a token for the
	// requested room.
	KindNoAccessToken
)

func (k FailureKind) String() string {
	switch k {
	case KindNotAccountOwner:
		return "not_account_owner"
	case KindNoAccessToken:
		return "no_access_token"
	default:
		return "bad_request"
	}
}

// GateError is an access gate rejection.
type GateError struct {
	Kind FailureKind
	Err  error
}

func (e *GateError) Error() string {
	return e.Err.Error()
}

func (e *GateError) Unwrap() error {
	return e.Err
}

func gateErr(kind FailureKind, err error) *GateError {
	return &GateError{Kind: kind, Err: err}
}

// Gate authenticates join requests: it proves the joiner owns the account
// they claim, then proves that account holds a token for the requested room.
type Gate struct {
	tokens chain.TokenSource
	log    *zerolog.Logger
}

// NewGate builds a gate backed by the given token source.
func NewGate(tokens chain.TokenSource, logger *zerolog.Logger) *Gate {
	return &Gate{tokens: tokens, log: logger}
}

// Authenticate runs the gate against one join request. On success it returns
// the verified account address, which becomes the connection's identity for
// the rest of its lifetime.
func (g *Gate) Authenticate(ctx context.Context, req *proto.JoinRequest) (chain.Address, error) {
	g.log.Info().
		Str("room_joiner", req.ChatRoomJoiner).
		Str("room_creator", req.ChatRoomCreator.Hex()).
		Str("room_name", req.ChatRoomName).
		Str("event", "authenticating").
		Send()

	var zero chain.Address

	pubBytes, err := hex.DecodeString(strings.TrimPrefix(req.ChatRoomJoiner, "0x"))
	if err != nil {
		return zero, gateErr(KindBadRequest, fmt.Errorf("decode public key as hex: %w", err))
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return zero, gateErr(KindBadRequest,
			fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubBytes)))
	}
	pub := ed25519.PublicKey(pubBytes)

	addr := chain.DeriveAddress(pub)

	// The wallet signed FullMessage with the private key matching pub.
	// Verification failing means the joiner cannot prove account
	// ownership, regardless of what tokens the account holds.
	sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil {
		return zero, gateErr(KindBadRequest, fmt.Errorf("decode signature as hex: %w", err))
	}
	if len(sig) != ed25519.SignatureSize {
		return zero, gateErr(KindBadRequest,
			fmt.Errorf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(sig)))
	}
	if !ed25519.Verify(pub, []byte(req.FullMessage), sig) {
		return zero, gateErr(KindNotAccountOwner,
			errors.New("signature does not verify against the declared public key"))
	}

	owned, err := g.tokens.TokensOnAccount(ctx, addr)
	if err != nil {
		return zero, gateErr(KindBadRequest, fmt.Errorf("fetch tokens on account: %w", err))
	}

	hasToken := false
	for _, ownership := range owned {
		if ownership.CreatorAddress == req.ChatRoomCreator.HexLiteral() &&
			ownership.CollectionName == req.ChatRoomName {
			hasToken = true
		}
	}
	if !hasToken {
		return zero, gateErr(KindNoAccessToken,
			errors.New("account does not hold a token that grants access to this chat room"))
	}

	g.log.Info().
		Str("room_joiner", req.ChatRoomJoiner).
		Str("room_creator", req.ChatRoomCreator.Hex()).
		Str("room_name", req.ChatRoomName).
		Str("event", "authenticated").
		Send()

	return addr, nil
}
