package wallet

import (
	"bytes"
	"strings"
	"testing"

	"xsign.co/sealvault/seal"
)

func TestParseAddress(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		wantE bool
	}{
		{"full", "0x" + strings.Repeat("ab", 32), false},
		{"bare", strings.Repeat("ab", 32), false},
		{"short", "0x1", false},
		{"empty", "", true},
		{"badhex", "0xzz", true},
		{"toolong", "0x" + strings.Repeat("ab", 33), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ParseAddress(tc.in)
			if tc.wantE {
				if err == nil {
					t.Fatalf("ParseAddress(%q): expected error", tc.in)
				}
				if !seal.IsKind(err, seal.KindInput) {
					t.Fatalf("ParseAddress(%q): expected Input kind, got %v", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tc.in, err)
			}
			if a.IsZero() {
				t.Fatalf("ParseAddress(%q): zero address", tc.in)
			}
		})
	}
}

func TestParseAddressShortIsLeftPadded(t *testing.T) {
	a, err := ParseAddress("0x1")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a[AddressLength-1] != 0x01 {
		t.Fatalf("expected low byte 0x01, got %#x", a[AddressLength-1])
	}
	for i := 0; i < AddressLength-1; i++ {
		if a[i] != 0 {
			t.Fatalf("expected zero padding at %d", i)
		}
	}
}

func TestDeriveAddressDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	k1, err := FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	k2, err := FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	if k1.Address() != k2.Address() {
		t.Fatalf("address derivation not deterministic")
	}
	if k1.Address().IsZero() {
		t.Fatalf("derived zero address")
	}
}

func TestSignVerify(t *testing.T) {
	k, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("session challenge")
	sig := k.Sign(msg)
	if !Verify(k.PublicKey(), msg, sig) {
		t.Fatalf("Verify: valid signature rejected")
	}
	if Verify(k.PublicKey(), []byte("other"), sig) {
		t.Fatalf("Verify: accepted signature over different message")
	}
	sig[0] ^= 0xff
	if Verify(k.PublicKey(), msg, sig) {
		t.Fatalf("Verify: accepted corrupted signature")
	}
}

func TestParseSeedHex(t *testing.T) {
	if _, err := ParseSeedHex("0x" + strings.Repeat("00", 32)); err != nil {
		t.Fatalf("ParseSeedHex: %v", err)
	}
	if _, err := ParseSeedHex("0x1234"); err == nil {
		t.Fatalf("ParseSeedHex: expected length error")
	}
}
