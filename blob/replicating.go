package blob

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"xsign.co/sealvault/blob/blobid"
)

// NamedStore associates a Store with a stable replica name used in
// per-replica reporting.
type NamedStore struct {
	Name  string
	Store Store
}

// Replicating writes every blob to all replicas and reads with ordered
// fallback.
//
// All replicas must return the canonical id for a write; a disagreeing
// replica indicates a corrupt or misbehaving backend and fails the write
// with ErrIDMismatch.
type Replicating struct {
	Replicas []NamedStore

	// Logger, when set, records per-replica read fallbacks. Writes are
	// all-or-nothing and need no per-replica reporting.
	Logger logrus.FieldLogger
}

var _ Store = (*Replicating)(nil)

// PutAll writes the same bytes to every replica.
//
// It returns the canonical id (computed from bytes) and a map of replica
// name to the id that replica reported.
func (r Replicating) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := blobid.FromBytes(bytes)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidID
	}
	if len(r.Replicas) == 0 {
		return cid.Undef, nil, fmt.Errorf("blob: Replicating has no replicas")
	}

	out := make(map[string]cid.Cid, len(r.Replicas))
	for _, rep := range r.Replicas {
		if rep.Store == nil {
			return cid.Undef, nil, fmt.Errorf("blob: nil store for replica %q", rep.Name)
		}
		got, err := rep.Store.Put(bytes)
		if err != nil {
			return cid.Undef, nil, fmt.Errorf("blob: replica %q: %w", rep.Name, err)
		}
		out[rep.Name] = got
		if got != want {
			return cid.Undef, out, ErrIDMismatch
		}
	}
	return want, out, nil
}

func (r Replicating) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r Replicating) Get(id cid.Cid) ([]byte, error) {
	var sawNotFound bool
	for _, rep := range r.Replicas {
		if rep.Store == nil {
			continue
		}
		out, err := rep.Store.Get(id)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			sawNotFound = true
			continue
		}
		if r.Logger != nil {
			r.Logger.WithFields(logrus.Fields{
				"replica": rep.Name,
				"blob":    id.String(),
			}).WithError(err).Warn("replica read failed, trying next")
		}
		sawNotFound = true
	}
	if sawNotFound {
		return nil, ErrNotFound
	}
	return nil, ErrNotFound
}

func (r Replicating) Has(id cid.Cid) bool {
	for _, rep := range r.Replicas {
		if rep.Store != nil && rep.Store.Has(id) {
			return true
		}
	}
	return false
}
