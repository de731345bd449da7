// Package memblob is an in-memory blob store for tests and single-process
// deployments.
package memblob

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[cid.Cid][]byte
}

var _ blob.Store = (*Store)(nil)

func New() *Store {
	return &Store{blobs: make(map[cid.Cid][]byte)}
}

func (s *Store) Put(bytes []byte) (cid.Cid, error) {
	id, err := blobid.FromBytes(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, blob.ErrInvalidID
	}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = cp
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, blob.ErrInvalidID
	}
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, blob.ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[id]
	return ok
}

// Len reports the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
