package keyserver

import (
	"context"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/session"
)

// KeyServer is one independent holder of key-release capability.
//
// Contract:
//   - WrapShare binds a key share to a document identity. It has no
//     authorization precondition: anyone may encrypt against a policy they
//     know, mirroring identity-based encryption where the ciphertext itself
//     carries no access control.
//   - UnwrapShare releases a share only after the server has verified the
//     session credential and independently re-evaluated the approval
//     predicate against its own ledger view.
type KeyServer interface {
	WrapShare(ctx context.Context, docID identity.Identity, share []byte) ([]byte, error)
	UnwrapShare(ctx context.Context, req UnwrapRequest) ([]byte, error)
}

// UnwrapRequest carries everything a server needs for one key release.
// Credential and Proof are single-use from the caller's perspective and are
// discarded after the call.
type UnwrapRequest struct {
	Credential *session.Credential  `json:"credential"`
	Proof      *policy.ApprovalProof `json:"proof"`
	Identity   identity.Identity    `json:"identity"`
	Wrapped    []byte               `json:"wrapped"`
}

// NamedServer associates a KeyServer with a stable name used in artifacts
// and per-server reporting.
type NamedServer struct {
	Name   string
	Server KeyServer
}
