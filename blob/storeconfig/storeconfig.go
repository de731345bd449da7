// Package storeconfig opens blob stores from a JSON config file.
//
// It provides config-driven replica selection on top of the registry.
// Callers still link the desired backends via blank imports.
//
// Example:
//
//	{
//	  "replicate": true,
//	  "stores": [
//	    {"name":"localfs", "config":{"localfs-dir":"/var/lib/sealvault/blobs"}},
//	    {"name":"grpc", "config":{"grpc-target":"10.0.0.7:7791"}}
//	  ]
//	}
//
// Config values are backend-specific; keys mirror each backend's CLI flag
// names.
package storeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ipfs/go-cid"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/registry"
)

type Config struct {
	// Replicate writes each blob to every store and requires id agreement.
	// When false, only the first store takes writes and reads fall back in
	// order.
	Replicate bool          `json:"replicate,omitempty"`
	Stores    []StoreConfig `json:"stores"`
}

type StoreConfig struct {
	// Name is the registry backend name to open (e.g. "localfs", "grpc").
	Name string `json:"name"`
	// ID is an optional stable alias for per-replica reporting. Defaults to
	// Name.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("storeconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Stores) == 0 {
		return errors.New("storeconfig: at least one store is required")
	}
	seen := make(map[string]struct{}, len(c.Stores))
	for _, s := range c.Stores {
		if s.Name == "" {
			return errors.New("storeconfig: store name is required")
		}
		id := s.Name
		if s.ID != "" {
			id = s.ID
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("storeconfig: duplicate store id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Open opens a store per config.
func (c Config) Open(usage registry.Usage) (blob.Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	named := make([]blob.NamedStore, 0, len(c.Stores))
	closers := make([]func() error, 0, len(c.Stores))
	for _, s := range c.Stores {
		store, closeFn, err := registry.OpenWithConfig(s.Name, usage, s.Config)
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
			return nil, nil, err
		}
		name := s.Name
		if s.ID != "" {
			name = s.ID
		}
		named = append(named, blob.NamedStore{Name: name, Store: store})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	if c.Replicate {
		return blob.Replicating{Replicas: named}, closeAll, nil
	}
	// First store takes writes; reads fall back in order.
	return firstWriter{all: named}, closeAll, nil
}

// firstWriter writes to the first store only and reads with ordered
// fallback across all of them.
type firstWriter struct {
	all []blob.NamedStore
}

var _ blob.Store = firstWriter{}

func (f firstWriter) Put(b []byte) (cid.Cid, error) {
	return f.all[0].Store.Put(b)
}

func (f firstWriter) Get(id cid.Cid) ([]byte, error) {
	var lastErr error
	for _, s := range f.all {
		out, err := s.Store.Get(id)
		if err == nil {
			return out, nil
		}
		if !blob.IsNotFound(err) {
			lastErr = fmt.Errorf("storeconfig: replica %q: %w", s.Name, err)
		}
	}
	// A replica failure is reported over plain not-found so callers can
	// tell an unreachable store from a genuinely absent blob.
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, blob.ErrNotFound
}

func (f firstWriter) Has(id cid.Cid) bool {
	for _, s := range f.all {
		if s.Store.Has(id) {
			return true
		}
	}
	return false
}
