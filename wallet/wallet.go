package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"xsign.co/sealvault/seal"
)

// AddressLength is the byte length of a ledger address.
const AddressLength = 32

// addressSchemeEd25519 is the scheme tag prepended to the public key before
// hashing. The ledger distinguishes signature schemes by this leading byte.
const addressSchemeEd25519 byte = 0x00

// Address is a fixed-length ledger address.
type Address [AddressLength]byte

// ParseAddress decodes a 0x-prefixed (or bare) hex address.
//
// Short input is left-padded with zeros so addresses written without leading
// zeros still parse; anything longer than AddressLength bytes is rejected.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if h == "" {
		return a, seal.New(seal.KindInput, "SEAL-ADDR-001", "empty address")
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, seal.Wrap(seal.KindInput, "SEAL-ADDR-002", "invalid address hex", err)
	}
	if len(b) > AddressLength {
		return a, seal.New(seal.KindInput, "SEAL-ADDR-003", "address exceeds 32 bytes")
	}
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText renders the address as 0x-prefixed hex, so addresses embedded
// in JSON documents stay human-readable.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a 0x-prefixed (or bare) hex address.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Keypair is an Ed25519 signing keypair bound to its derived address.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr Address
}

// Generate returns a fresh random keypair.
func Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KEY-001", "keypair generation failed", err)
	}
	return &Keypair{priv: priv, pub: pub, addr: DeriveAddress(pub)}, nil
}

// FromSeed returns the keypair for a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, seal.New(seal.KindInput, "SEAL-KEY-002", "seed must be 32 bytes")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{priv: priv, pub: pub, addr: DeriveAddress(pub)}, nil
}

// ParseSeedHex parses a 0x-prefixed (or bare) hex Ed25519 seed.
func ParseSeedHex(seedHex string) ([]byte, error) {
	h := strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, seal.Wrap(seal.KindInput, "SEAL-KEY-003", "invalid seed hex", err)
	}
	if len(b) != ed25519.SeedSize {
		return nil, seal.New(seal.KindInput, "SEAL-KEY-002", "seed must be 32 bytes")
	}
	return b, nil
}

// DeriveAddress computes the ledger address for an Ed25519 public key:
// sha3-256(scheme byte || pubkey), truncated to AddressLength.
func DeriveAddress(pub ed25519.PublicKey) Address {
	h := sha3.New256()
	_, _ = h.Write([]byte{addressSchemeEd25519})
	_, _ = h.Write(pub)
	var a Address
	copy(a[:], h.Sum(nil)[:AddressLength])
	return a
}

func (k *Keypair) Address() Address {
	return k.addr
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	out := make(ed25519.PublicKey, len(k.pub))
	copy(out, k.pub)
	return out
}

// Sign signs the sha3-256 digest of message.
func (k *Keypair) Sign(message []byte) []byte {
	digest := sha3.Sum256(message)
	return ed25519.Sign(k.priv, digest[:])
}

// Verify checks an Ed25519 signature over sha3-256(message).
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	digest := sha3.Sum256(message)
	return ed25519.Verify(pub, digest[:], sig)
}
