package pipeline

import (
	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
)

// Result is the outcome of one encryption run.
//
// Exactly one branch holds: either the document was encrypted and uploaded
// (Encrypted true, BlobID set), or the run degraded to the explicit fallback
// (Encrypted false, FallbackReason set) because the caller opted in via
// Config.AllowPlaintextFallback. There is no silent middle ground.
type Result struct {
	Encrypted bool

	// FallbackReason names why encryption was skipped. Set only on the
	// fallback branch; the document was NOT uploaded and the caller decides
	// what to do with the plaintext.
	FallbackReason string

	// PolicyID and CapID identify the allowlist created for the document
	// and the admin capability controlling it. Set on both branches: the
	// policy exists even when encryption degraded.
	PolicyID ledger.ObjectID
	CapID    ledger.ObjectID

	// DocumentID is the derived document identity. Set on both branches.
	DocumentID identity.Identity

	// BlobID addresses the uploaded encrypted artifact. Encrypted branch only.
	BlobID string
}
