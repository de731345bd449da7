package policy

import (
	"context"
	"errors"
	"testing"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/ledger/memledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

const testPackage = ledger.ObjectID("0x00000000000000000000000000000000000000000000000000000000000000a1")

type fixture struct {
	ledger *memledger.Ledger
	store  *Store
	admin  *wallet.Keypair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := memledger.New(testPackage)
	s, err := New(l, testPackage)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	admin, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return &fixture{ledger: l, store: s, admin: admin}
}

func (f *fixture) identityFor(t *testing.T, h *Handle, parties []wallet.Address) identity.Identity {
	t.Helper()
	pid, err := IDBytes(h.PolicyID)
	if err != nil {
		t.Fatalf("IDBytes: %v", err)
	}
	id, err := identity.Derive(pid, [][]byte{[]byte("contract-1")}, parties)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	return id
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(nil, testPackage); !seal.IsKind(err, seal.KindConfig) {
		t.Fatalf("nil client: got %v", err)
	}
	if _, err := New(memledger.New(testPackage), ""); !seal.IsKind(err, seal.KindConfig) {
		t.Fatalf("empty package: got %v", err)
	}
}

func TestCreateParsesHandleFromEffects(t *testing.T) {
	f := newFixture(t)
	h, err := f.store.Create(context.Background(), f.admin, "contract-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.PolicyID == "" || h.CapID == "" {
		t.Fatalf("incomplete handle: %+v", h)
	}
	info, err := f.store.Get(context.Background(), h.PolicyID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.State != StateCreated {
		t.Fatalf("fresh policy state: got %s", info.State)
	}
}

func TestLifecycleStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, err := f.store.Create(ctx, f.admin, "contract-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	member, _ := wallet.Generate()
	if err := f.store.AddParties(ctx, h, f.admin, []wallet.Address{member.Address()}); err != nil {
		t.Fatalf("AddParties: %v", err)
	}
	info, _ := f.store.Get(ctx, h.PolicyID)
	if info.State != StatePartiesAdded {
		t.Fatalf("after add: got %s", info.State)
	}

	docID := f.identityFor(t, h, []wallet.Address{member.Address()})
	if err := f.store.Publish(ctx, h, f.admin, "blob-1", docID); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	info, _ = f.store.Get(ctx, h.PolicyID)
	if info.State != StatePublished {
		t.Fatalf("after publish: got %s", info.State)
	}
	if info.Blobs[docID.Hex()] != "blob-1" {
		t.Fatalf("blob reference not recorded: %v", info.Blobs)
	}

	// More parties can still be added after publication.
	late, _ := wallet.Generate()
	if err := f.store.AddParties(ctx, h, f.admin, []wallet.Address{late.Address()}); err != nil {
		t.Fatalf("AddParties after publish: %v", err)
	}
}

func TestAddPartiesIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.store.Create(ctx, f.admin, "contract-1")

	a, _ := wallet.Generate()
	b, _ := wallet.Generate()
	set := []wallet.Address{a.Address(), b.Address()}
	if err := f.store.AddParties(ctx, h, f.admin, set); err != nil {
		t.Fatalf("AddParties(1): %v", err)
	}
	if err := f.store.AddParties(ctx, h, f.admin, set); err != nil {
		t.Fatalf("AddParties(2): %v", err)
	}
	info, _ := f.store.Get(ctx, h.PolicyID)
	if len(info.Parties) != 2 {
		t.Fatalf("expected 2 parties, got %d", len(info.Parties))
	}
}

func TestMutationWithWrongAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.store.Create(ctx, f.admin, "contract-1")

	stranger, _ := wallet.Generate()
	member, _ := wallet.Generate()
	err := f.store.AddParties(ctx, h, stranger, []wallet.Address{member.Address()})
	if !seal.IsKind(err, seal.KindNotAuthorized) {
		t.Fatalf("wrong admin: got %v", err)
	}
}

func TestChainFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.ledger.SubmitHook = func(ledger.MoveCall) error { return errors.New("network unreachable") }

	_, err := f.store.Create(context.Background(), f.admin, "contract-1")
	if !seal.IsKind(err, seal.KindChain) {
		t.Fatalf("expected Chain, got %v", err)
	}
	if !seal.Retryable(err) {
		t.Fatalf("chain submission failure must be retryable")
	}
}

func TestBuildApprovalProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.store.Create(ctx, f.admin, "contract-1")

	member, _ := wallet.Generate()
	outsider, _ := wallet.Generate()
	parties := []wallet.Address{member.Address()}
	if err := f.store.AddParties(ctx, h, f.admin, parties); err != nil {
		t.Fatalf("AddParties: %v", err)
	}
	docID := f.identityFor(t, h, parties)

	proof, err := f.store.BuildApprovalProof(ctx, h.PolicyID, docID, member.Address())
	if err != nil {
		t.Fatalf("BuildApprovalProof(member): %v", err)
	}
	if proof.Nonce == "" || proof.TxDigest == "" {
		t.Fatalf("incomplete proof: %+v", proof)
	}
	if proof.Address != member.Address() || proof.PolicyID != h.PolicyID {
		t.Fatalf("proof binding mismatch")
	}

	p2, err := f.store.BuildApprovalProof(ctx, h.PolicyID, docID, member.Address())
	if err != nil {
		t.Fatalf("BuildApprovalProof(again): %v", err)
	}
	if p2.Nonce == proof.Nonce {
		t.Fatalf("proofs must be single-use: nonce reused")
	}

	_, err = f.store.BuildApprovalProof(ctx, h.PolicyID, docID, outsider.Address())
	if !seal.IsKind(err, seal.KindNotAuthorized) {
		t.Fatalf("outsider: got %v", err)
	}

	_, err = f.store.BuildApprovalProof(ctx, "0xdead", docID, member.Address())
	if !seal.IsKind(err, seal.KindNotFound) {
		t.Fatalf("unknown policy: got %v", err)
	}
}

func TestIDBytes(t *testing.T) {
	b, err := IDBytes("0x0a0b")
	if err != nil || len(b) != 2 {
		t.Fatalf("IDBytes: %v %x", err, b)
	}
	if _, err := IDBytes("0xzz"); !seal.IsKind(err, seal.KindInput) {
		t.Fatalf("bad hex: got %v", err)
	}
}
