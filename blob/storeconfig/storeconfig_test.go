package storeconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-cid"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
	"xsign.co/sealvault/blob/memblob"
	"xsign.co/sealvault/blob/registry"

	_ "xsign.co/sealvault/blob/localfs"
)

func TestLoadFileValidates(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		return p
	}

	if _, err := LoadFile(""); err == nil {
		t.Fatalf("empty path accepted")
	}
	if _, err := LoadFile(write("empty.json", `{"stores":[]}`)); err == nil {
		t.Fatalf("empty store list accepted")
	}
	if _, err := LoadFile(write("dup.json", `{"stores":[{"name":"mem"},{"name":"mem"}]}`)); err == nil {
		t.Fatalf("duplicate store ids accepted")
	}
	cfg, err := LoadFile(write("ok.json", `{"replicate":true,"stores":[{"name":"mem","id":"a"},{"name":"mem","id":"b"}]}`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.Replicate || len(cfg.Stores) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestOpenReplicated(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Replicate: true,
		Stores: []StoreConfig{
			{Name: "localfs", ID: "disk", Config: map[string]string{"localfs-dir": dir}},
			{Name: "mem", ID: "cache"},
		},
	}
	store, closeFn, err := cfg.Open(registry.UsageDaemon)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = closeFn() }()

	id, err := store.Put([]byte("replicated blob"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !store.Has(id) {
		t.Fatalf("Has: expected true")
	}

	// The localfs replica holds the blob on disk.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("localfs replica is empty")
	}
}

func TestOpenFirstWriter(t *testing.T) {
	cfg := Config{
		Stores: []StoreConfig{
			{Name: "mem", ID: "primary"},
			{Name: "mem", ID: "secondary"},
		},
	}
	store, closeFn, err := cfg.Open(registry.UsageDaemon)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = closeFn() }()

	id, err := store.Put([]byte("blob"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "blob" {
		t.Fatalf("payload mismatch")
	}
}

// brokenStore simulates an unreachable replica.
type brokenStore struct{}

func (brokenStore) Put([]byte) (cid.Cid, error) { return cid.Undef, errors.New("connection refused") }
func (brokenStore) Get(cid.Cid) ([]byte, error) { return nil, errors.New("connection refused") }
func (brokenStore) Has(cid.Cid) bool            { return false }

func TestFirstWriterGetFallsPastFailingReplica(t *testing.T) {
	mem := memblob.New()
	id, err := mem.Put([]byte("held by the secondary"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	fw := firstWriter{all: []blob.NamedStore{
		{Name: "down", Store: brokenStore{}},
		{Name: "good", Store: mem},
	}}

	got, err := fw.Get(id)
	if err != nil {
		t.Fatalf("Get past failing replica: %v", err)
	}
	if string(got) != "held by the secondary" {
		t.Fatalf("payload mismatch")
	}

	// Absent everywhere with a failed replica: the failure is reported,
	// not flattened into not-found.
	missing, err := blobid.FromBytes([]byte("never stored"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if _, err := fw.Get(missing); err == nil || blob.IsNotFound(err) {
		t.Fatalf("replica failure flattened: %v", err)
	}

	// Absent everywhere with healthy replicas only: plain not-found.
	healthy := firstWriter{all: []blob.NamedStore{{Name: "good", Store: mem}}}
	if _, err := healthy.Get(missing); !blob.IsNotFound(err) {
		t.Fatalf("got %v, want not-found", err)
	}
}
