package chat

import (
	"testing"
	"time"

	"github.com/aptos-labs/hong-bao/internal/chain"
)

func testAddr(b byte) chain.Address {
	var addr chain.Address
	addr[chain.AddressLength-1] = b
	return addr
}

// mustParcel reads parcels until one of the wanted kind arrives.
func mustParcel(t *testing.T, ch <-chan OutputParcel, kind OutputKind) OutputParcel {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-ch:
			if p.Output.Kind == kind {
				return p
			}
		case <-deadline:
			t.Fatalf("expected parcel kind %v not received", kind)
		}
	}
}

// mustQuiet asserts that nothing arrives on ch for the given duration.
func mustQuiet(t *testing.T, ch <-chan OutputParcel, d time.Duration) {
	t.Helper()

	select {
	case p := <-ch:
		t.Fatalf("expected no parcel, got kind %v for %s", p.Output.Kind, p.Target)
	case <-time.After(d):
	}
}

func join(addr chain.Address) InputParcel {
	return InputParcel{Address: addr, Input: Input{Kind: InputJoin}}
}

func post(addr chain.Address, body string) InputParcel {
	return InputParcel{Address: addr, Input: Input{Kind: InputPost, Body: body}}
}
