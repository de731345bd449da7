package session

import (
	"testing"
	"time"

	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

const testPolicy = ledger.ObjectID("0x11")

func TestFromSignature(t *testing.T) {
	kp, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	issuedAt := time.Now().UTC()
	sig := kp.Sign(Challenge(kp.Address(), testPolicy, issuedAt, 5))

	cred, err := FromSignature(kp.Address(), kp.PublicKey(), testPolicy, 5, issuedAt, sig)
	if err != nil {
		t.Fatalf("FromSignature: %v", err)
	}
	if cred.Bootstrap {
		t.Fatalf("signature path must not be marked bootstrap")
	}
	if err := cred.Verify(testPolicy, time.Now()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestFromSignatureRejectsWrongKey(t *testing.T) {
	kp, _ := wallet.Generate()
	other, _ := wallet.Generate()
	issuedAt := time.Now().UTC()
	sig := other.Sign(Challenge(kp.Address(), testPolicy, issuedAt, 5))

	// Signature by a different key, claiming kp's address.
	_, err := FromSignature(kp.Address(), other.PublicKey(), testPolicy, 5, issuedAt, sig)
	if !seal.IsKind(err, seal.KindAuth) {
		t.Fatalf("expected Auth, got %v", err)
	}
	// Right key, signature over a different challenge.
	badSig := kp.Sign([]byte("unrelated"))
	_, err = FromSignature(kp.Address(), kp.PublicKey(), testPolicy, 5, issuedAt, badSig)
	if !seal.IsKind(err, seal.KindAuth) {
		t.Fatalf("expected Auth, got %v", err)
	}
}

func TestChallengeBindsAllFields(t *testing.T) {
	kp, _ := wallet.Generate()
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := Challenge(kp.Address(), testPolicy, issuedAt, 5)

	variants := [][]byte{
		Challenge(kp.Address(), "0x22", issuedAt, 5),
		Challenge(kp.Address(), testPolicy, issuedAt.Add(time.Second), 5),
		Challenge(kp.Address(), testPolicy, issuedAt, 6),
	}
	for i, v := range variants {
		if string(v) == string(base) {
			t.Fatalf("variant %d did not change the challenge", i)
		}
	}
}

func TestCredentialScopedToPolicy(t *testing.T) {
	kp, _ := wallet.Generate()
	cred, err := FromPrivateKey(kp, testPolicy, 5)
	if err != nil {
		t.Fatalf("FromPrivateKey: %v", err)
	}
	if !cred.Bootstrap {
		t.Fatalf("private-key path must be marked bootstrap")
	}
	if err := cred.Verify("0x22", time.Now()); !seal.IsKind(err, seal.KindAuth) {
		t.Fatalf("cross-policy use: expected Auth, got %v", err)
	}
}

func TestCredentialExpiry(t *testing.T) {
	kp, _ := wallet.Generate()
	issuedAt := time.Now().UTC()
	sig := kp.Sign(Challenge(kp.Address(), testPolicy, issuedAt, 1))
	cred, err := FromSignature(kp.Address(), kp.PublicKey(), testPolicy, 1, issuedAt, sig)
	if err != nil {
		t.Fatalf("FromSignature: %v", err)
	}

	if err := cred.Verify(testPolicy, issuedAt.Add(30*time.Second)); err != nil {
		t.Fatalf("mid-window Verify: %v", err)
	}
	err = cred.Verify(testPolicy, issuedAt.Add(2*time.Minute))
	if !seal.IsKind(err, seal.KindExpiredCredential) {
		t.Fatalf("expected ExpiredCredential after TTL, got %v", err)
	}
}

func TestCredentialTamperedSignature(t *testing.T) {
	kp, _ := wallet.Generate()
	cred, err := FromPrivateKey(kp, testPolicy, 5)
	if err != nil {
		t.Fatalf("FromPrivateKey: %v", err)
	}
	cred.Signature[0] ^= 0x01
	if err := cred.Verify(testPolicy, time.Now()); !seal.IsKind(err, seal.KindAuth) {
		t.Fatalf("expected Auth for tampered signature, got %v", err)
	}
}

func TestVerifyNilCredential(t *testing.T) {
	var c *Credential
	if err := c.Verify(testPolicy, time.Now()); !seal.IsKind(err, seal.KindAuth) {
		t.Fatalf("expected Auth for nil credential, got %v", err)
	}
}
