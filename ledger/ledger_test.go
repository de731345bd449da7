package ledger

import (
	"testing"

	"xsign.co/sealvault/wallet"
)

func testAddress(t *testing.T, b byte) wallet.Address {
	t.Helper()
	var a wallet.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestArgConstructors(t *testing.T) {
	addr := testAddress(t, 0x11)

	cases := []struct {
		name     string
		arg      Arg
		wantType ArgType
		wantVal  string
	}{
		{"bytes", Bytes([]byte{0xde, 0xad}), ArgBytes, "dead"},
		{"string", String("label"), ArgString, "label"},
		{"address", Address(addr), ArgAddress, addr.String()},
		{"object", ObjectArg("0xabc"), ArgObject, "0xabc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.arg.Type != tc.wantType {
				t.Fatalf("type = %q, want %q", tc.arg.Type, tc.wantType)
			}
			if tc.arg.Value != tc.wantVal {
				t.Fatalf("value = %q, want %q", tc.arg.Value, tc.wantVal)
			}
		})
	}
}

// The object-reference arg constructor and the object read view share a
// package; both must stay usable side by side.
func TestObjectArgDistinctFromObjectView(t *testing.T) {
	arg := ObjectArg("0xfeed")
	view := &Object{ID: "0xfeed", Type: "::allowlist::Allowlist"}
	if arg.Value != string(view.ID) {
		t.Fatalf("arg value %q does not match view id %q", arg.Value, view.ID)
	}
}

func TestArgDecoders(t *testing.T) {
	addr := testAddress(t, 0x22)

	b, err := Bytes([]byte{1, 2, 3}).BytesValue()
	if err != nil {
		t.Fatalf("BytesValue: %v", err)
	}
	if len(b) != 3 || b[0] != 1 {
		t.Fatalf("BytesValue = %v", b)
	}
	if _, err := String("x").BytesValue(); err == nil {
		t.Fatal("BytesValue accepted a string arg")
	}

	got, err := Address(addr).AddressValue()
	if err != nil {
		t.Fatalf("AddressValue: %v", err)
	}
	if got != addr {
		t.Fatalf("AddressValue = %s, want %s", got, addr)
	}

	many, err := Addresses([]wallet.Address{addr, testAddress(t, 0x33)}).AddressesValue()
	if err != nil {
		t.Fatalf("AddressesValue: %v", err)
	}
	if len(many) != 2 || many[0] != addr {
		t.Fatalf("AddressesValue = %v", many)
	}

	empty, err := Addresses(nil).AddressesValue()
	if err != nil || empty != nil {
		t.Fatalf("empty vector round trip = %v, %v", empty, err)
	}
}
