package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xsign.co/sealvault/blob/blobid"
	"xsign.co/sealvault/blob/localfs"
)

func TestRunUpload(t *testing.T) {
	content := []byte("plaintext kept by the caller after a degraded encrypt")
	docPath := filepath.Join(t.TempDir(), "doc.bin")
	if err := os.WriteFile(docPath, content, 0o600); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	storeDir := t.TempDir()

	var out, errOut bytes.Buffer
	code := run([]string{
		"upload",
		"--store", "localfs",
		"--localfs-dir", storeDir,
		"--file", docPath,
	}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}

	want, err := blobid.FromBytes(content)
	if err != nil {
		t.Fatalf("blobid.FromBytes: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != want.String() {
		t.Fatalf("printed id %q, want %q", got, want)
	}

	// The blob is readable from the store directory afterwards.
	store, err := localfs.New(storeDir)
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	stored, err := store.Get(want)
	if err != nil {
		t.Fatalf("Get after upload: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatalf("stored bytes differ from uploaded document")
	}
}

func TestRunUploadMissingStoreDir(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"upload", "--store", "localfs"}, &out, &errOut)
	if code == 0 {
		t.Fatalf("expected nonzero exit without --localfs-dir")
	}
}

func TestRunKeygenDeterministic(t *testing.T) {
	seed := strings.Repeat("ab", 32)
	var first, second, errOut bytes.Buffer
	if code := run([]string{"keygen", "--seed-hex", seed}, &first, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if code := run([]string{"keygen", "--seed-hex", seed}, &second, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if first.String() != second.String() {
		t.Fatalf("same seed produced different output")
	}
	if !strings.Contains(first.String(), "address: 0x") {
		t.Fatalf("unexpected keygen output: %s", first.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"sideload"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown command exit = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Fatalf("missing diagnostic: %s", errOut.String())
	}
}
