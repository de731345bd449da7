package identity

import (
	"bytes"
	"testing"

	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

func addr(t *testing.T, b byte) wallet.Address {
	t.Helper()
	var a wallet.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestDeriveDeterministic(t *testing.T) {
	policyID := []byte{0xaa, 0xbb, 0xcc}
	scope := [][]byte{[]byte("contract-41"), []byte("rev-2")}
	parties := []wallet.Address{addr(t, 1), addr(t, 2)}

	id1, err := Derive(policyID, scope, parties)
	if err != nil {
		t.Fatalf("Derive(1): %v", err)
	}
	id2, err := Derive(policyID, scope, parties)
	if err != nil {
		t.Fatalf("Derive(2): %v", err)
	}
	if !bytes.Equal(id1, id2) {
		t.Fatalf("Derive not deterministic:\n%x\n%x", id1, id2)
	}
}

func TestDeriveOrderSensitive(t *testing.T) {
	policyID := []byte{0x01}
	a := [][]byte{[]byte("x"), []byte("y")}
	b := [][]byte{[]byte("y"), []byte("x")}
	id1, err := Derive(policyID, a, nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	id2, err := Derive(policyID, b, nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if bytes.Equal(id1, id2) {
		t.Fatalf("scope reordering must change the identity")
	}
}

func TestDeriveLengthBounds(t *testing.T) {
	big := make([]byte, MaxFieldLen+1)
	if _, err := Derive(big, nil, nil); !seal.IsKind(err, seal.KindInput) {
		t.Fatalf("oversized policy id: got %v", err)
	}
	if _, err := Derive([]byte{1}, [][]byte{big}, nil); !seal.IsKind(err, seal.KindInput) {
		t.Fatalf("oversized scope element: got %v", err)
	}
	if _, err := Derive(nil, nil, nil); !seal.IsKind(err, seal.KindInput) {
		t.Fatalf("empty policy id: got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	policyID := []byte{0xde, 0xad}
	scope := [][]byte{[]byte("doc"), {}}
	parties := []wallet.Address{addr(t, 9)}

	id, err := Derive(policyID, scope, parties)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	dec, err := Decode(id)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec.PolicyID, policyID) {
		t.Fatalf("policy id mismatch")
	}
	if len(dec.Scope) != 2 || !bytes.Equal(dec.Scope[0], []byte("doc")) || len(dec.Scope[1]) != 0 {
		t.Fatalf("scope mismatch: %q", dec.Scope)
	}
	if len(dec.Parties) != 1 || dec.Parties[0] != parties[0] {
		t.Fatalf("party mismatch")
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	policyID := []byte{0x01, 0x02}
	id, err := Derive(policyID, nil, []wallet.Address{addr(t, 3)})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	t.Run("WrongVersion", func(t *testing.T) {
		bad := append(Identity(nil), id...)
		bad[0] = 0x02
		if _, err := Decode(bad); !seal.IsKind(err, seal.KindInput) {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("Truncated", func(t *testing.T) {
		if _, err := Decode(id[:len(id)-5]); !seal.IsKind(err, seal.KindInput) {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("Trailing", func(t *testing.T) {
		bad := append(append(Identity(nil), id...), 0x00)
		if _, err := Decode(bad); !seal.IsKind(err, seal.KindInput) {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		if _, err := Decode(nil); !seal.IsKind(err, seal.KindInput) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestHexRoundTrip(t *testing.T) {
	id, err := Derive([]byte{0x07}, [][]byte{[]byte("s")}, nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	back, err := ParseHex("0x" + id.Hex())
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if !bytes.Equal(back, id) {
		t.Fatalf("hex round trip mismatch")
	}
	if _, err := ParseHex("zz"); !seal.IsKind(err, seal.KindInput) {
		t.Fatalf("ParseHex bad hex: got %v", err)
	}
}
