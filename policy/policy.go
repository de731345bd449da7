package policy

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

// moduleName is the on-chain module implementing the allowlist policy.
const moduleName = "allowlist"

// State is the lifecycle position of a policy. Transitions are monotonic:
// Created -> PartiesAdded -> Published, with PartiesAdded recurring as more
// parties are added after publication.
type State string

const (
	StateCreated      State = "Created"
	StatePartiesAdded State = "PartiesAdded"
	StatePublished    State = "Published"
)

// Handle pairs a policy with its admin capability. The capability id is
// required for every mutation and is owned by the policy creator only.
type Handle struct {
	PolicyID ledger.ObjectID `json:"policyId"`
	CapID    ledger.ObjectID `json:"capId"`
}

// Info is a read snapshot of on-chain policy state. The pipeline never
// caches it across calls; the ledger stays the single source of truth.
type Info struct {
	ID      ledger.ObjectID
	Label   string
	Parties []wallet.Address
	// Blobs maps document-identity hex to the published blob id.
	Blobs map[string]string
	State  State
}

// Store executes policy lifecycle operations against a ledger.
//
// Each exported method is one authenticated on-chain transaction. Timeout
// bounds every ledger round trip when non-zero.
type Store struct {
	Client  ledger.Client
	Package ledger.ObjectID

	Timeout time.Duration
}

// New returns a Store for the given ledger client and allowlist package.
func New(client ledger.Client, packageID ledger.ObjectID) (*Store, error) {
	if client == nil {
		return nil, seal.New(seal.KindConfig, "SEAL-POL-001", "nil ledger client")
	}
	if packageID == "" {
		return nil, seal.New(seal.KindConfig, "SEAL-POL-002", "allowlist package id not configured")
	}
	return &Store{Client: client, Package: packageID}, nil
}

// Create creates a policy object and returns its handle. The returned
// object ids are parsed out of the transaction's change list; submission
// success alone is never trusted.
func (s *Store) Create(ctx context.Context, admin *wallet.Keypair, label string) (*Handle, error) {
	if admin == nil {
		return nil, seal.New(seal.KindAuth, "SEAL-POL-003", "missing admin credential")
	}
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	res, err := s.Client.Submit(ctx, admin.Address(), ledger.MoveCall{
		Package: s.Package, Module: moduleName, Function: "create_allowlist_entry",
		Args: []ledger.Arg{ledger.String(label)},
	})
	if err != nil {
		return nil, seal.Wrap(seal.KindChain, "SEAL-POL-010", "policy creation submission failed", err)
	}
	if !res.Status.Success {
		return nil, mapAbort(res.Status.Error, "policy creation")
	}
	policyID, ok := res.CreatedOfType("::allowlist::Allowlist")
	if !ok {
		return nil, seal.New(seal.KindInternal, "SEAL-POL-011", "transaction succeeded but no allowlist object in effects")
	}
	capID, ok := res.CreatedOfType("::allowlist::Cap")
	if !ok {
		return nil, seal.New(seal.KindInternal, "SEAL-POL-012", "transaction succeeded but no capability object in effects")
	}
	return &Handle{PolicyID: policyID, CapID: capID}, nil
}

// AddParties adds the party set to the policy. The call is idempotent:
// parties already present are no-ops, and a failed call is retried by
// resubmitting the whole set, never per party.
func (s *Store) AddParties(ctx context.Context, h *Handle, admin *wallet.Keypair, parties []wallet.Address) error {
	if admin == nil {
		return seal.New(seal.KindAuth, "SEAL-POL-003", "missing admin credential")
	}
	if h == nil || h.PolicyID == "" || h.CapID == "" {
		return seal.New(seal.KindInput, "SEAL-POL-004", "incomplete policy handle")
	}
	if len(parties) == 0 {
		return seal.New(seal.KindInput, "SEAL-POL-005", "empty party set")
	}
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	res, err := s.Client.Submit(ctx, admin.Address(), ledger.MoveCall{
		Package: s.Package, Module: moduleName, Function: "add_members",
		Args: []ledger.Arg{ledger.ObjectArg(h.PolicyID), ledger.ObjectArg(h.CapID), ledger.Addresses(parties)},
	})
	if err != nil {
		return seal.Wrap(seal.KindChain, "SEAL-POL-020", "add-parties submission failed", err)
	}
	if !res.Status.Success {
		return mapAbort(res.Status.Error, "add parties")
	}
	return nil
}

// Publish associates a stored blob with the policy so later approval checks
// can be evaluated against it.
func (s *Store) Publish(ctx context.Context, h *Handle, admin *wallet.Keypair, blobID string, docID identity.Identity) error {
	if admin == nil {
		return seal.New(seal.KindAuth, "SEAL-POL-003", "missing admin credential")
	}
	if h == nil || h.PolicyID == "" || h.CapID == "" {
		return seal.New(seal.KindInput, "SEAL-POL-004", "incomplete policy handle")
	}
	if blobID == "" || len(docID) == 0 {
		return seal.New(seal.KindInput, "SEAL-POL-006", "blob id and document identity are required")
	}
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	res, err := s.Client.Submit(ctx, admin.Address(), ledger.MoveCall{
		Package: s.Package, Module: moduleName, Function: "publish",
		Args: []ledger.Arg{ledger.ObjectArg(h.PolicyID), ledger.ObjectArg(h.CapID), ledger.String(blobID), ledger.Bytes(docID)},
	})
	if err != nil {
		return seal.Wrap(seal.KindChain, "SEAL-POL-030", "publish submission failed", err)
	}
	if !res.Status.Success {
		return mapAbort(res.Status.Error, "publish")
	}
	return nil
}

// Get reads current policy state.
func (s *Store) Get(ctx context.Context, policyID ledger.ObjectID) (*Info, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	obj, err := s.Client.GetObject(ctx, policyID)
	if err != nil {
		if ledger.IsObjectNotFound(err) {
			return nil, seal.Wrap(seal.KindNotFound, "SEAL-POL-040", "policy not found", err)
		}
		return nil, seal.Wrap(seal.KindChain, "SEAL-POL-041", "policy read failed", err)
	}

	info := &Info{ID: policyID, Label: obj.Fields["name"], Blobs: make(map[string]string), State: StateCreated}
	if raw := obj.Fields["parties"]; raw != "" {
		for _, p := range strings.Split(raw, ",") {
			addr, err := wallet.ParseAddress(p)
			if err != nil {
				return nil, seal.Wrap(seal.KindInternal, "SEAL-POL-042", "malformed party in policy state", err)
			}
			info.Parties = append(info.Parties, addr)
		}
	}
	if raw := obj.Fields["blobs"]; raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			doc, blob, ok := strings.Cut(pair, ":")
			if !ok {
				return nil, seal.New(seal.KindInternal, "SEAL-POL-043", "malformed blob reference in policy state")
			}
			info.Blobs[doc] = blob
		}
	}
	switch {
	case len(info.Blobs) > 0:
		info.State = StatePublished
	case len(info.Parties) > 0:
		info.State = StatePartiesAdded
	}
	return info, nil
}

// IDBytes returns the raw bytes of a policy object id, the form embedded in
// document identities.
func IDBytes(policyID ledger.ObjectID) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(string(policyID), "0x"))
	if err != nil {
		return nil, seal.Wrap(seal.KindInput, "SEAL-POL-007", "invalid policy id hex", err)
	}
	if len(b) == 0 {
		return nil, seal.New(seal.KindInput, "SEAL-POL-007", "empty policy id")
	}
	return b, nil
}

// ApprovalCall is the access predicate invocation for (docID, policyID).
// Both the proof builder and key servers construct it from the same inputs
// so the evaluated call can never diverge between them.
func ApprovalCall(packageID, policyID ledger.ObjectID, docID identity.Identity) ledger.MoveCall {
	return ledger.MoveCall{
		Package: packageID, Module: moduleName, Function: "seal_approve",
		Args: []ledger.Arg{ledger.Bytes(docID), ledger.ObjectArg(policyID)},
	}
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// mapAbort converts a Move abort reason into the pipeline taxonomy.
// Authorization aborts stay deliberately coarse.
func mapAbort(reason, op string) error {
	switch reason {
	case "ENoAccess":
		return seal.New(seal.KindNotAuthorized, "SEAL-POL-100", "not authorized")
	case "EInvalidCap":
		return seal.New(seal.KindAuth, "SEAL-POL-101", op+" rejected: invalid capability")
	case "EInvalidIdentity":
		return seal.New(seal.KindNotAuthorized, "SEAL-POL-100", "not authorized")
	default:
		return seal.New(seal.KindChain, "SEAL-POL-102", op+" aborted: "+reason)
	}
}
