package policy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

// ApprovalProof attests that (Address, PolicyID, Identity) satisfied the
// policy's membership predicate at issuance time. It is consumed once per
// decryption attempt and never persisted.
//
// The proof is advisory, not bearer: key servers re-evaluate the same
// predicate against their own ledger view, so forging the struct gains a
// caller nothing.
type ApprovalProof struct {
	Nonce    string            `json:"nonce"`
	Address  wallet.Address    `json:"address"`
	PolicyID ledger.ObjectID   `json:"policyId"`
	Identity identity.Identity `json:"identity"`
	IssuedAt time.Time         `json:"issuedAt"`
	// TxDigest identifies the dry-run evaluation backing this proof.
	TxDigest string `json:"txDigest"`
}

// BuildApprovalProof evaluates the policy's access predicate for caller and
// returns a proof on success.
//
// Read-only: requires only the caller's identity, never the capability.
// Callers not in the party set fail with a NotAuthorized error carrying no
// detail about which check rejected them.
func (s *Store) BuildApprovalProof(ctx context.Context, policyID ledger.ObjectID, docID identity.Identity, caller wallet.Address) (*ApprovalProof, error) {
	if policyID == "" || len(docID) == 0 {
		return nil, seal.New(seal.KindInput, "SEAL-POL-050", "policy id and document identity are required")
	}
	if caller.IsZero() {
		return nil, seal.New(seal.KindInput, "SEAL-POL-051", "caller address is required")
	}
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	res, err := s.Client.DryRun(ctx, caller, ApprovalCall(s.Package, policyID, docID))
	if err != nil {
		if ledger.IsObjectNotFound(err) {
			return nil, seal.Wrap(seal.KindNotFound, "SEAL-POL-040", "policy not found", err)
		}
		return nil, seal.Wrap(seal.KindChain, "SEAL-POL-052", "approval evaluation failed", err)
	}
	if !res.Status.Success {
		return nil, mapAbort(res.Status.Error, "approval")
	}

	return &ApprovalProof{
		Nonce:    uuid.NewString(),
		Address:  caller,
		PolicyID: policyID,
		Identity: append(identity.Identity(nil), docID...),
		IssuedAt: time.Now().UTC(),
		TxDigest: res.Digest,
	}, nil
}
