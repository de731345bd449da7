package keyserver

import (
	"crypto/rand"

	"github.com/cloudflare/circl/group"
	"github.com/cloudflare/circl/secretsharing"
	"golang.org/x/crypto/sha3"

	"xsign.co/sealvault/seal"
)

// dekGroup is the prime-order group the data-encryption key lives in.
// Scalars marshal to a fixed width, which the share codec relies on.
var dekGroup = group.P256

const scalarLen = 32

// newDEK samples a fresh data-encryption secret.
func newDEK() (group.Scalar, error) {
	s := dekGroup.RandomNonZeroScalar(rand.Reader)
	if s == nil {
		return nil, seal.New(seal.KindCrypto, "SEAL-KS-001", "dek sampling failed")
	}
	return s, nil
}

// dekKey derives the symmetric payload key from the DEK secret.
func dekKey(dek group.Scalar) ([]byte, error) {
	b, err := dek.MarshalBinary()
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-002", "dek marshal failed", err)
	}
	sum := sha3.Sum256(b)
	return sum[:], nil
}

// splitDEK produces n Shamir shares of the DEK such that any `threshold` of
// them recover it. Shares are serialized as fixed-width ID||Value scalars.
func splitDEK(dek group.Scalar, threshold, n int) ([][]byte, error) {
	if threshold < 1 || n < threshold {
		return nil, seal.New(seal.KindConfig, "SEAL-KS-003", "invalid threshold/server count")
	}
	// secretsharing.New takes the polynomial degree: threshold-1 means any
	// `threshold` shares recover the secret.
	ss := secretsharing.New(rand.Reader, uint(threshold-1), dek)
	shares := ss.Share(uint(n))

	out := make([][]byte, 0, len(shares))
	for _, sh := range shares {
		id, err := sh.ID.MarshalBinary()
		if err != nil {
			return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-004", "share id marshal failed", err)
		}
		val, err := sh.Value.MarshalBinary()
		if err != nil {
			return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-004", "share value marshal failed", err)
		}
		if len(id) != scalarLen || len(val) != scalarLen {
			return nil, seal.New(seal.KindInternal, "SEAL-KS-005", "unexpected scalar width")
		}
		out = append(out, append(id, val...))
	}
	return out, nil
}

// recoverDEK reconstructs the DEK from at least `threshold` serialized shares.
func recoverDEK(serialized [][]byte, threshold int) (group.Scalar, error) {
	if len(serialized) < threshold {
		return nil, seal.New(seal.KindQuorum, "SEAL-KS-006", "not enough shares to recover key")
	}
	shares := make([]secretsharing.Share, 0, len(serialized))
	for _, b := range serialized {
		if len(b) != 2*scalarLen {
			return nil, seal.New(seal.KindCrypto, "SEAL-KS-007", "malformed key share")
		}
		id := dekGroup.NewScalar()
		if err := id.UnmarshalBinary(b[:scalarLen]); err != nil {
			return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-007", "malformed share id", err)
		}
		val := dekGroup.NewScalar()
		if err := val.UnmarshalBinary(b[scalarLen:]); err != nil {
			return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-007", "malformed share value", err)
		}
		shares = append(shares, secretsharing.Share{ID: id, Value: val})
	}
	dek, err := secretsharing.Recover(uint(threshold-1), shares)
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-008", "key recovery failed", err)
	}
	return dek, nil
}
