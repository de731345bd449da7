package blob

import "github.com/ipfs/go-cid"

// Store holds encrypted artifacts keyed by content id.
//
// Contract:
//   - Put MUST be idempotent: storing the same bytes twice yields the same id.
//   - Stored blobs MUST be immutable; the id is derived from the bytes.
//   - Get MUST return ErrNotFound when the id is absent.
//
// Stores see only ciphertext. Nothing in this package depends on the
// encryption layer, and a store operator learns nothing about blob contents
// beyond their size.
type Store interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
