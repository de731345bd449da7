package memledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/wallet"
)

// Move abort reasons surfaced in Status.Error. These mirror the allowlist
// module's abort codes and are matched by the policy layer.
const (
	AbortNoAccess        = "ENoAccess"
	AbortInvalidCap      = "EInvalidCap"
	AbortInvalidIdentity = "EInvalidIdentity"
)

const (
	typeAllowlist = "::allowlist::Allowlist"
	typeCap       = "::allowlist::Cap"
)

type allowlist struct {
	id      ledger.ObjectID
	name    string
	parties []wallet.Address
	// published blob references, document-identity hex -> blob id
	blobs map[string]string
}

type capability struct {
	id        ledger.ObjectID
	allowlist ledger.ObjectID
	owner     wallet.Address
}

// Ledger is an in-memory ledger implementing the allowlist module's
// semantics: allowlist/capability lifecycle, idempotent membership, blob
// publication, and the seal_approve access predicate.
//
// Transactions are serialized by a single mutex, the way a real ledger
// serializes them by consensus ordering.
type Ledger struct {
	// PackageID is the published allowlist package. Calls against any other
	// package fail with ErrUnknownTarget.
	PackageID ledger.ObjectID

	// SubmitHook, when set, runs before each Submit and may return an error
	// to simulate transport or consensus failures.
	SubmitHook func(call ledger.MoveCall) error

	mu         sync.Mutex
	allowlists map[ledger.ObjectID]*allowlist
	caps       map[ledger.ObjectID]*capability
	txSeq      int
}

var _ ledger.Client = (*Ledger)(nil)

// New returns an empty ledger with the given published package id.
func New(packageID ledger.ObjectID) *Ledger {
	return &Ledger{
		PackageID:  packageID,
		allowlists: make(map[ledger.ObjectID]*allowlist),
		caps:       make(map[ledger.ObjectID]*capability),
	}
}

func (l *Ledger) Submit(ctx context.Context, sender wallet.Address, call ledger.MoveCall) (*ledger.TxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.SubmitHook != nil {
		if err := l.SubmitHook(call); err != nil {
			return nil, err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.execute(sender, call, true)
}

func (l *Ledger) DryRun(ctx context.Context, sender wallet.Address, call ledger.MoveCall) (*ledger.TxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.execute(sender, call, false)
}

func (l *Ledger) GetObject(ctx context.Context, id ledger.ObjectID) (*ledger.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if al, ok := l.allowlists[id]; ok {
		parties := make([]string, 0, len(al.parties))
		for _, p := range al.parties {
			parties = append(parties, p.String())
		}
		blobs := make([]string, 0, len(al.blobs))
		for doc, blob := range al.blobs {
			blobs = append(blobs, doc+":"+blob)
		}
		return &ledger.Object{
			ID:   id,
			Type: string(l.PackageID) + typeAllowlist,
			Fields: map[string]string{
				"name":    al.name,
				"parties": strings.Join(parties, ","),
				"blobs":   strings.Join(blobs, ","),
			},
		}, nil
	}
	if c, ok := l.caps[id]; ok {
		return &ledger.Object{
			ID:    id,
			Type:  string(l.PackageID) + typeCap,
			Owner: c.owner,
			Fields: map[string]string{
				"allowlist_id": string(c.allowlist),
			},
		}, nil
	}
	return nil, ledger.ErrObjectNotFound
}

func (l *Ledger) execute(sender wallet.Address, call ledger.MoveCall, mutate bool) (*ledger.TxResult, error) {
	if call.Package != l.PackageID || call.Module != "allowlist" {
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnknownTarget, call.Target())
	}
	l.txSeq++
	res := &ledger.TxResult{
		Digest: fmt.Sprintf("memtx-%06d", l.txSeq),
		Status: ledger.Status{Success: true},
	}

	switch call.Function {
	case "create_allowlist_entry":
		if !mutate {
			return abort(res, AbortInvalidCap), nil
		}
		return l.createAllowlist(sender, call, res)
	case "add_members":
		if !mutate {
			return abort(res, AbortInvalidCap), nil
		}
		return l.addMembers(sender, call, res)
	case "publish":
		if !mutate {
			return abort(res, AbortInvalidCap), nil
		}
		return l.publish(sender, call, res)
	case "seal_approve":
		return l.sealApprove(sender, call, res)
	default:
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnknownTarget, call.Target())
	}
}

func (l *Ledger) createAllowlist(sender wallet.Address, call ledger.MoveCall, res *ledger.TxResult) (*ledger.TxResult, error) {
	name := ""
	if len(call.Args) > 0 {
		name = call.Args[0].Value
	}

	al := &allowlist{id: newObjectID(), name: name, blobs: make(map[string]string)}
	cap := &capability{id: newObjectID(), allowlist: al.id, owner: sender}
	l.allowlists[al.id] = al
	l.caps[cap.id] = cap

	res.Changes = []ledger.ObjectChange{
		{Kind: ledger.ChangeCreated, ObjectType: string(l.PackageID) + typeAllowlist, ID: al.id},
		{Kind: ledger.ChangeCreated, ObjectType: string(l.PackageID) + typeCap, ID: cap.id, Owner: sender},
	}
	res.Events = []ledger.Event{{
		Type:   "allowlist::Created",
		Fields: map[string]string{"allowlist_id": string(al.id), "cap_id": string(cap.id), "name": name},
	}}
	return res, nil
}

func (l *Ledger) addMembers(sender wallet.Address, call ledger.MoveCall, res *ledger.TxResult) (*ledger.TxResult, error) {
	if len(call.Args) < 3 {
		return abort(res, AbortInvalidCap), nil
	}
	al, cap, reason := l.authorize(sender, call.Args[0], call.Args[1])
	if reason != "" {
		return abort(res, reason), nil
	}
	parties, err := call.Args[2].AddressesValue()
	if err != nil {
		return abort(res, AbortInvalidIdentity), nil
	}

	// Whole-set semantics: either every party ends up present or the
	// transaction aborts. Re-adding a present party is a no-op.
	for _, p := range parties {
		if p.IsZero() {
			return abort(res, AbortInvalidIdentity), nil
		}
	}
	for _, p := range parties {
		if !containsAddress(al.parties, p) {
			al.parties = append(al.parties, p)
		}
	}

	res.Changes = []ledger.ObjectChange{
		{Kind: ledger.ChangeMutated, ObjectType: string(l.PackageID) + typeAllowlist, ID: al.id},
	}
	res.Events = []ledger.Event{{
		Type:   "allowlist::MembersAdded",
		Fields: map[string]string{"allowlist_id": string(al.id), "cap_id": string(cap.id), "count": fmt.Sprint(len(parties))},
	}}
	return res, nil
}

func (l *Ledger) publish(sender wallet.Address, call ledger.MoveCall, res *ledger.TxResult) (*ledger.TxResult, error) {
	if len(call.Args) < 4 {
		return abort(res, AbortInvalidCap), nil
	}
	al, _, reason := l.authorize(sender, call.Args[0], call.Args[1])
	if reason != "" {
		return abort(res, reason), nil
	}
	blobID := call.Args[2].Value
	docID, err := call.Args[3].BytesValue()
	if err != nil || len(docID) == 0 || blobID == "" {
		return abort(res, AbortInvalidIdentity), nil
	}
	al.blobs[hex.EncodeToString(docID)] = blobID

	res.Changes = []ledger.ObjectChange{
		{Kind: ledger.ChangeMutated, ObjectType: string(l.PackageID) + typeAllowlist, ID: al.id},
	}
	res.Events = []ledger.Event{{
		Type:   "allowlist::Published",
		Fields: map[string]string{"allowlist_id": string(al.id), "blob_id": blobID},
	}}
	return res, nil
}

// sealApprove evaluates the access predicate: the document identity must be
// bound to this allowlist and the sender must be a member.
func (l *Ledger) sealApprove(sender wallet.Address, call ledger.MoveCall, res *ledger.TxResult) (*ledger.TxResult, error) {
	if len(call.Args) < 2 {
		return abort(res, AbortInvalidIdentity), nil
	}
	docID, err := call.Args[0].BytesValue()
	if err != nil {
		return abort(res, AbortInvalidIdentity), nil
	}
	if call.Args[1].Type != ledger.ArgObject {
		return abort(res, AbortInvalidIdentity), nil
	}
	al, ok := l.allowlists[ledger.ObjectID(call.Args[1].Value)]
	if !ok {
		return nil, ledger.ErrObjectNotFound
	}

	dec, err := identity.Decode(identity.Identity(docID))
	if err != nil {
		return abort(res, AbortInvalidIdentity), nil
	}
	wantPolicy := strings.TrimPrefix(string(al.id), "0x")
	if hex.EncodeToString(dec.PolicyID) != wantPolicy {
		return abort(res, AbortInvalidIdentity), nil
	}
	if !containsAddress(al.parties, sender) {
		return abort(res, AbortNoAccess), nil
	}
	res.Events = []ledger.Event{{
		Type:   "allowlist::Approved",
		Fields: map[string]string{"allowlist_id": string(al.id), "member": sender.String()},
	}}
	return res, nil
}

// authorize resolves the (allowlist, cap) object pair and checks that the
// cap is bound to the allowlist and owned by sender.
func (l *Ledger) authorize(sender wallet.Address, alArg, capArg ledger.Arg) (*allowlist, *capability, string) {
	if alArg.Type != ledger.ArgObject || capArg.Type != ledger.ArgObject {
		return nil, nil, AbortInvalidCap
	}
	al, ok := l.allowlists[ledger.ObjectID(alArg.Value)]
	if !ok {
		return nil, nil, AbortInvalidCap
	}
	cap, ok := l.caps[ledger.ObjectID(capArg.Value)]
	if !ok {
		return nil, nil, AbortInvalidCap
	}
	if cap.allowlist != al.id {
		return nil, nil, AbortInvalidCap
	}
	if cap.owner != sender {
		return nil, nil, AbortNoAccess
	}
	return al, cap, ""
}

func abort(res *ledger.TxResult, reason string) *ledger.TxResult {
	res.Status = ledger.Status{Success: false, Error: reason}
	res.Changes = nil
	res.Events = nil
	return res
}

func containsAddress(haystack []wallet.Address, needle wallet.Address) bool {
	for _, a := range haystack {
		if a == needle {
			return true
		}
	}
	return false
}

func newObjectID() ledger.ObjectID {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return ledger.ObjectID("0x" + hex.EncodeToString(b[:]))
}
