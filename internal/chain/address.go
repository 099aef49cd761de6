package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the byte length of an on-chain account address.
const AddressLength = 32

// ed25519Scheme is the authentication key scheme byte for single-signer
// ed25519 accounts.
const ed25519Scheme = 0x00

var ErrInvalidAddress = errors.New("invalid account address")

// Address identifies an on-chain account. It is the equality key for room
// membership and room ownership throughout the server.
type Address [AddressLength]byte

// ParseAddress decodes a hex account address, with or without the 0x prefix.
// Short forms are accepted and left-padded with zeros, matching how
// addresses appear in wallet and indexer output.
func ParseAddress(s string) (Address, error) {
	var addr Address

	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" || len(trimmed) > AddressLength*2 {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if len(trimmed)%2 != 0 {
		trimmed = "0" + trimmed
	}

	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	copy(addr[AddressLength-len(raw):], raw)
	return addr, nil
}

// DeriveAddress computes the account address owned by an ed25519 public key:
// sha3-256 over the key bytes followed by the single-signer scheme byte.
func DeriveAddress(pub ed25519.PublicKey) Address {
	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{ed25519Scheme})

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// Hex returns the full-width 0x-prefixed form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// HexLiteral returns the 0x-prefixed form with leading zeros trimmed. The
// indexer reports creator addresses in this form.
func (a Address) HexLiteral() string {
	trimmed := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
