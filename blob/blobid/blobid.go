// Package blobid derives and parses blob content ids.
//
// A blob id is a CIDv1 over the raw multicodec with a sha2-256 multihash, so
// any holder of the bytes can recompute and verify the id offline.
package blobid

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// FromBytes derives the blob id for data.
func FromBytes(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String derives the blob id for data and renders it, or returns "" if the
// hash fails (unreachable with sha2-256 and default length).
func String(data []byte) string {
	id, err := FromBytes(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// Parse decodes a blob id string.
func Parse(s string) (cid.Cid, error) {
	if s == "" {
		return cid.Undef, errors.New("blobid: empty id")
	}
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	return id, nil
}
