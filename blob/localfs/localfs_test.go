package localfs

import (
	"os"
	"testing"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
	"xsign.co/sealvault/blob/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) blob.Store {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := []byte("original")
	id, err := s.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored blob out-of-band.
	path := s.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Get must detect the hash mismatch.
	if _, err := s.Get(id); err != blob.ErrIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, blob.ErrIDMismatch)
	}

	// Put must not "repair" or overwrite the corrupted blob.
	if _, err := s.Put(orig); err != blob.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, blob.ErrImmutable)
	}

	wantID, err := blobid.FromBytes(orig)
	if err != nil {
		t.Fatalf("blobid.FromBytes failed: %v", err)
	}
	if id != wantID {
		t.Fatalf("unexpected id: got %s want %s", id, wantID)
	}
}
