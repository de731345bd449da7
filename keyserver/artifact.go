package keyserver

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/seal"
)

// artifactVersion tags the on-disk artifact layout. Artifacts carry their
// wrapped key shares inline so decryption needs only the artifact, the
// document identity, and a quorum of live servers.
const artifactVersion byte = 0x01

const maxArtifactShares = 256

// wrappedShare is one server's sealed key share as stored in an artifact.
type wrappedShare struct {
	Server string
	Blob   []byte
}

func newPayloadAEAD(key []byte) (cipher.AEAD, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-010", "aead construction failed", err)
	}
	return aead, nil
}

// sealPayload encrypts plaintext under key, binding the ciphertext to the
// document identity as associated data.
func sealPayload(key []byte, plaintext []byte, docID identity.Identity) ([]byte, error) {
	aead, err := newPayloadAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-011", "nonce sampling failed", err)
	}
	return aead.Seal(nonce, nonce, plaintext, docID), nil
}

// openPayload reverses sealPayload. A ciphertext paired with the wrong
// identity fails authentication.
func openPayload(key []byte, blob []byte, docID identity.Identity) ([]byte, error) {
	aead, err := newPayloadAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, seal.New(seal.KindCrypto, "SEAL-KS-012", "ciphertext too short")
	}
	nonce, sealed := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	out, err := aead.Open(nil, nonce, sealed, docID)
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-013", "payload authentication failed", err)
	}
	return out, nil
}

func encodeArtifact(payload []byte, shares []wrappedShare) []byte {
	size := 1 + 4 + len(payload) + 4
	for _, s := range shares {
		size += 4 + len(s.Server) + 4 + len(s.Blob)
	}
	out := make([]byte, 0, size)
	out = append(out, artifactVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(shares)))
	for _, s := range shares {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s.Server)))
		out = append(out, s.Server...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s.Blob)))
		out = append(out, s.Blob...)
	}
	return out
}

func parseArtifact(b []byte) (payload []byte, shares []wrappedShare, err error) {
	bad := func(msg string) ([]byte, []wrappedShare, error) {
		return nil, nil, seal.New(seal.KindInput, "SEAL-KS-014", msg)
	}
	if len(b) < 1 {
		return bad("empty artifact")
	}
	if b[0] != artifactVersion {
		return bad("unsupported artifact version")
	}
	b = b[1:]

	next := func(n int) ([]byte, bool) {
		if len(b) < n {
			return nil, false
		}
		out := b[:n]
		b = b[n:]
		return out, true
	}
	nextPrefixed := func() ([]byte, bool) {
		l, ok := next(4)
		if !ok {
			return nil, false
		}
		n := binary.LittleEndian.Uint32(l)
		if n > uint32(len(b)) {
			return nil, false
		}
		return next(int(n))
	}

	payload, ok := nextPrefixed()
	if !ok {
		return bad("truncated artifact payload")
	}
	countBytes, ok := next(4)
	if !ok {
		return bad("truncated share count")
	}
	count := binary.LittleEndian.Uint32(countBytes)
	if count > maxArtifactShares {
		return bad("share count exceeds bound")
	}
	shares = make([]wrappedShare, 0, count)
	for i := uint32(0); i < count; i++ {
		name, ok := nextPrefixed()
		if !ok {
			return bad("truncated share server name")
		}
		blob, ok := nextPrefixed()
		if !ok {
			return bad("truncated share blob")
		}
		shares = append(shares, wrappedShare{Server: string(name), Blob: blob})
	}
	if len(b) != 0 {
		return bad("trailing bytes after artifact")
	}
	return payload, shares, nil
}
