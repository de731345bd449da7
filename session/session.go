package session

import (
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

// challengePrefix domain-separates session challenges from every other
// signed message. Bump the suffix if the challenge layout ever changes.
const challengePrefix = "sealvault-session-v1"

// clockSkew is the tolerance for credentials issued slightly in the future
// by a caller with a drifting clock.
const clockSkew = time.Minute

// DefaultTTLMinutes is the credential lifetime used when a caller passes 0.
const DefaultTTLMinutes = 10

// Credential is a short-lived proof of address ownership scoped to one
// policy. It is single-use from the pipeline's perspective: orchestrators
// discard it when the call completes, and an expired credential is re-derived,
// never extended.
type Credential struct {
	Address    wallet.Address    `json:"address"`
	PolicyID   ledger.ObjectID   `json:"policyId"`
	PublicKey  ed25519.PublicKey `json:"publicKey"`
	IssuedAt   time.Time         `json:"issuedAt"`
	TTLMinutes int               `json:"ttlMinutes"`
	Signature  []byte            `json:"signature"`

	// Bootstrap marks credentials minted directly from a private key.
	// That path skips the caller-held-signature ceremony and is accepted
	// for tests and local tooling only; key servers may refuse it.
	Bootstrap bool `json:"bootstrap,omitempty"`
}

// Challenge returns the canonical message a caller signs to mint a
// credential. It binds address, policy, issuance time, and TTL so a
// signature cannot be replayed for a different policy, address, or window.
func Challenge(address wallet.Address, policyID ledger.ObjectID, issuedAt time.Time, ttlMinutes int) []byte {
	parts := []string{
		challengePrefix,
		address.String(),
		string(policyID),
		issuedAt.UTC().Format(time.RFC3339),
		fmt.Sprintf("ttl-min=%d", ttlMinutes),
	}
	return []byte(strings.Join(parts, "\n"))
}

// FromSignature builds a credential from a caller-supplied signature over
// the canonical challenge.
//
// The public key must derive to the claimed address; this is what ties the
// signature to the address rather than to an arbitrary key.
func FromSignature(address wallet.Address, pub ed25519.PublicKey, policyID ledger.ObjectID, ttlMinutes int, issuedAt time.Time, sig []byte) (*Credential, error) {
	if policyID == "" {
		return nil, seal.New(seal.KindInput, "SEAL-SES-001", "empty policy id")
	}
	if ttlMinutes <= 0 {
		ttlMinutes = DefaultTTLMinutes
	}
	if wallet.DeriveAddress(pub) != address {
		return nil, seal.New(seal.KindAuth, "SEAL-SES-002", "public key does not derive to address")
	}
	if !wallet.Verify(pub, Challenge(address, policyID, issuedAt, ttlMinutes), sig) {
		return nil, seal.New(seal.KindAuth, "SEAL-SES-003", "challenge signature invalid")
	}
	return &Credential{
		Address:    address,
		PolicyID:   policyID,
		PublicKey:  append(ed25519.PublicKey(nil), pub...),
		IssuedAt:   issuedAt.UTC(),
		TTLMinutes: ttlMinutes,
		Signature:  append([]byte(nil), sig...),
	}, nil
}

// FromPrivateKey mints a credential by signing the challenge with the
// caller's own keypair. Bootstrap/testing path only.
func FromPrivateKey(kp *wallet.Keypair, policyID ledger.ObjectID, ttlMinutes int) (*Credential, error) {
	if kp == nil {
		return nil, seal.New(seal.KindInput, "SEAL-SES-004", "nil keypair")
	}
	if policyID == "" {
		return nil, seal.New(seal.KindInput, "SEAL-SES-001", "empty policy id")
	}
	if ttlMinutes <= 0 {
		ttlMinutes = DefaultTTLMinutes
	}
	issuedAt := time.Now().UTC()
	sig := kp.Sign(Challenge(kp.Address(), policyID, issuedAt, ttlMinutes))
	cred, err := FromSignature(kp.Address(), kp.PublicKey(), policyID, ttlMinutes, issuedAt, sig)
	if err != nil {
		return nil, err
	}
	cred.Bootstrap = true
	return cred, nil
}

// ExpiresAt returns the end of the credential's validity window.
func (c *Credential) ExpiresAt() time.Time {
	return c.IssuedAt.Add(time.Duration(c.TTLMinutes) * time.Minute)
}

// Verify checks the credential at the given instant: address binding,
// challenge signature, and validity window. Key servers run this on every
// key-release request; a stale credential is an ExpiredCredential failure,
// never an authorization one.
func (c *Credential) Verify(policyID ledger.ObjectID, now time.Time) error {
	if c == nil {
		return seal.New(seal.KindAuth, "SEAL-SES-005", "missing credential")
	}
	if c.PolicyID != policyID {
		return seal.New(seal.KindAuth, "SEAL-SES-006", "credential scoped to a different policy")
	}
	if wallet.DeriveAddress(c.PublicKey) != c.Address {
		return seal.New(seal.KindAuth, "SEAL-SES-002", "public key does not derive to address")
	}
	if !wallet.Verify(c.PublicKey, Challenge(c.Address, c.PolicyID, c.IssuedAt, c.TTLMinutes), c.Signature) {
		return seal.New(seal.KindAuth, "SEAL-SES-003", "challenge signature invalid")
	}
	if now.Add(clockSkew).Before(c.IssuedAt) {
		return seal.New(seal.KindAuth, "SEAL-SES-007", "credential issued in the future")
	}
	if now.After(c.ExpiresAt()) {
		return seal.New(seal.KindExpiredCredential, "SEAL-SES-008", "credential expired")
	}
	return nil
}
