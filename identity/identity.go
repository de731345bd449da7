package identity

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

// Version is the identity encoding version tag. Encoded identities start
// with this byte; artifacts produced under a different version are not
// compatible and must be rejected, never reinterpreted.
const Version byte = 0x01

// MaxFieldLen bounds every variable-length field in an identity.
const MaxFieldLen = 512

// MaxFields bounds the number of scope elements and parties.
const MaxFields = 256

// Identity is the deterministic byte string binding a policy to a document
// scope. It is recomputed independently by the encryption path, the
// decryption path, and the on-chain approval check, so the encoding is fixed:
// a version byte, then length-prefixed variable fields in declaration order,
// then the party set as a count followed by raw fixed-width addresses.
type Identity []byte

// Derive encodes (policyID, scope, parties) into an Identity.
//
// The function is pure: identical inputs always produce byte-identical
// output. Field order is significant; changing it requires a new Version.
func Derive(policyID []byte, scope [][]byte, parties []wallet.Address) (Identity, error) {
	if len(policyID) == 0 {
		return nil, seal.New(seal.KindInput, "SEAL-ID-001", "empty policy id")
	}
	if len(policyID) > MaxFieldLen {
		return nil, seal.New(seal.KindInput, "SEAL-ID-002", "policy id exceeds length bound")
	}
	if len(scope) > MaxFields {
		return nil, seal.New(seal.KindInput, "SEAL-ID-003", "too many scope elements")
	}
	if len(parties) > MaxFields {
		return nil, seal.New(seal.KindInput, "SEAL-ID-004", "too many parties")
	}

	size := 1 + 4 + len(policyID) + 4 + 4 + len(parties)*wallet.AddressLength
	for _, s := range scope {
		if len(s) > MaxFieldLen {
			return nil, seal.New(seal.KindInput, "SEAL-ID-005", "scope element exceeds length bound")
		}
		size += 4 + len(s)
	}

	out := make([]byte, 0, size)
	out = append(out, Version)
	out = appendPrefixed(out, policyID)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(scope)))
	for _, s := range scope {
		out = appendPrefixed(out, s)
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(len(parties)))
	for _, p := range parties {
		out = append(out, p[:]...)
	}
	return Identity(out), nil
}

func appendPrefixed(dst, field []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(field)))
	return append(dst, field...)
}

// Decoded is the parsed view of an Identity.
type Decoded struct {
	PolicyID []byte
	Scope    [][]byte
	Parties  []wallet.Address
}

// Decode parses an encoded Identity, rejecting unknown versions and
// truncated or oversized fields.
func Decode(id Identity) (*Decoded, error) {
	r := reader{buf: id}
	v, err := r.byte()
	if err != nil {
		return nil, err
	}
	if v != Version {
		return nil, seal.New(seal.KindInput, "SEAL-ID-010", "unsupported identity version")
	}

	policyID, err := r.prefixed()
	if err != nil {
		return nil, err
	}
	if len(policyID) == 0 {
		return nil, seal.New(seal.KindInput, "SEAL-ID-001", "empty policy id")
	}

	nScope, err := r.count()
	if err != nil {
		return nil, err
	}
	scope := make([][]byte, 0, nScope)
	for i := uint32(0); i < nScope; i++ {
		s, err := r.prefixed()
		if err != nil {
			return nil, err
		}
		scope = append(scope, s)
	}

	nParties, err := r.count()
	if err != nil {
		return nil, err
	}
	parties := make([]wallet.Address, 0, nParties)
	for i := uint32(0); i < nParties; i++ {
		var a wallet.Address
		b, err := r.take(wallet.AddressLength)
		if err != nil {
			return nil, err
		}
		copy(a[:], b)
		parties = append(parties, a)
	}

	if r.remaining() != 0 {
		return nil, seal.New(seal.KindInput, "SEAL-ID-011", "trailing bytes after identity")
	}
	return &Decoded{PolicyID: policyID, Scope: scope, Parties: parties}, nil
}

// Hex returns the identity as bare hex, the form carried in request and
// response payloads as documentId.
func (id Identity) Hex() string {
	return hex.EncodeToString(id)
}

// ParseHex decodes a documentId hex string (0x prefix optional) and
// validates it as a well-formed Identity.
func ParseHex(s string) (Identity, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, seal.Wrap(seal.KindInput, "SEAL-ID-012", "invalid identity hex", err)
	}
	id := Identity(b)
	if _, err := Decode(id); err != nil {
		return nil, err
	}
	return id, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, seal.New(seal.KindInput, "SEAL-ID-013", "truncated identity")
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, seal.New(seal.KindInput, "SEAL-ID-013", "truncated identity")
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) count() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b)
	if n > MaxFields {
		return 0, seal.New(seal.KindInput, "SEAL-ID-014", "field count exceeds bound")
	}
	return n, nil
}

func (r *reader) prefixed() ([]byte, error) {
	b, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(b)
	if n > MaxFieldLen {
		return nil, seal.New(seal.KindInput, "SEAL-ID-015", "field length exceeds bound")
	}
	return r.take(int(n))
}
