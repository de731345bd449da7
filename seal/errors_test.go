package seal

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind(t *testing.T) {
	err := New(KindNotAuthorized, "SEAL-POL-104", "not authorized")
	if !IsKind(err, KindNotAuthorized) {
		t.Fatalf("IsKind: expected NotAuthorized")
	}
	if IsKind(err, KindChain) {
		t.Fatalf("IsKind: unexpected Chain match")
	}
	if IsKind(errors.New("plain"), KindChain) {
		t.Fatalf("IsKind: matched a non-structured error")
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := New(KindQuorum, "SEAL-KS-201", "quorum not reached")
	outer := fmt.Errorf("decrypt: %w", inner)
	if !IsKind(outer, KindQuorum) {
		t.Fatalf("IsKind: expected Quorum through fmt wrapping")
	}
	if RuleID(outer) != "SEAL-KS-201" {
		t.Fatalf("RuleID: got %q", RuleID(outer))
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindChain, true},
		{KindQuorum, true},
		{KindAuth, false},
		{KindNotAuthorized, false},
		{KindConfig, false},
		{KindExpiredCredential, false},
		{KindInput, false},
	}
	for _, tc := range cases {
		err := New(tc.kind, "SEAL-TEST-001", "x")
		if got := Retryable(err); got != tc.want {
			t.Fatalf("Retryable(%s): got %v want %v", tc.kind, got, tc.want)
		}
	}
	if Retryable(errors.New("plain")) {
		t.Fatalf("Retryable: plain error should be false")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(KindChain, "SEAL-LED-001", "submission failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is: expected cause to be reachable")
	}
}
