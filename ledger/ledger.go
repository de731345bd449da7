package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"xsign.co/sealvault/wallet"
)

// ObjectID is an opaque on-chain object handle in 0x-hex form.
type ObjectID string

// Client is the ledger collaborator boundary.
//
// Contract:
//   - Submit executes a state-changing transaction. A nil error means the
//     transaction was sequenced, not that the business effect happened:
//     callers MUST inspect TxResult.Status and parse created objects out of
//     TxResult.Changes.
//   - DryRun evaluates a call read-only against current state. It is used
//     for authorization predicates and never mutates.
//   - GetObject reads current object state, returning ErrObjectNotFound for
//     unknown ids.
//
// Every method honors ctx cancellation and deadlines.
type Client interface {
	Submit(ctx context.Context, sender wallet.Address, call MoveCall) (*TxResult, error)
	DryRun(ctx context.Context, sender wallet.Address, call MoveCall) (*TxResult, error)
	GetObject(ctx context.Context, id ObjectID) (*Object, error)
}

var (
	ErrObjectNotFound = errors.New("ledger: object not found")
	ErrUnknownTarget  = errors.New("ledger: unknown call target")
)

// IsObjectNotFound reports whether err is (or wraps) ErrObjectNotFound.
func IsObjectNotFound(err error) bool { return errors.Is(err, ErrObjectNotFound) }

// MoveCall names an entry function on a published package.
type MoveCall struct {
	Package  ObjectID `json:"package"`
	Module   string   `json:"module"`
	Function string   `json:"function"`
	Args     []Arg    `json:"args,omitempty"`
}

// Target returns the canonical package::module::function string.
func (c MoveCall) Target() string {
	return string(c.Package) + "::" + c.Module + "::" + c.Function
}

// ArgType discriminates the wire form of a call argument.
type ArgType string

const (
	ArgBytes     ArgType = "bytes"
	ArgString    ArgType = "string"
	ArgAddress   ArgType = "address"
	ArgAddresses ArgType = "addresses"
	ArgObject    ArgType = "object"
)

// Arg is a call argument in canonical string form: hex for bytes, 0x-hex for
// addresses (comma-joined for vectors), the raw string otherwise.
type Arg struct {
	Type  ArgType `json:"type"`
	Value string  `json:"value"`
}

func Bytes(b []byte) Arg { return Arg{Type: ArgBytes, Value: hex.EncodeToString(b)} }

func String(s string) Arg { return Arg{Type: ArgString, Value: s} }

func Address(a wallet.Address) Arg { return Arg{Type: ArgAddress, Value: a.String()} }

func Addresses(as []wallet.Address) Arg {
	parts := make([]string, 0, len(as))
	for _, a := range as {
		parts = append(parts, a.String())
	}
	return Arg{Type: ArgAddresses, Value: strings.Join(parts, ",")}
}

func ObjectArg(id ObjectID) Arg { return Arg{Type: ArgObject, Value: string(id)} }

// BytesValue decodes a bytes argument.
func (a Arg) BytesValue() ([]byte, error) {
	if a.Type != ArgBytes {
		return nil, errors.New("ledger: argument is not bytes")
	}
	return hex.DecodeString(a.Value)
}

// AddressValue decodes an address argument.
func (a Arg) AddressValue() (wallet.Address, error) {
	if a.Type != ArgAddress {
		return wallet.Address{}, errors.New("ledger: argument is not an address")
	}
	return wallet.ParseAddress(a.Value)
}

// AddressesValue decodes an address-vector argument.
func (a Arg) AddressesValue() ([]wallet.Address, error) {
	if a.Type != ArgAddresses {
		return nil, errors.New("ledger: argument is not an address vector")
	}
	if a.Value == "" {
		return nil, nil
	}
	parts := strings.Split(a.Value, ",")
	out := make([]wallet.Address, 0, len(parts))
	for _, p := range parts {
		addr, err := wallet.ParseAddress(p)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// Status is the executed-transaction status. A sequenced transaction can
// still fail; Success and Error carry the business outcome.
type Status struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChangeKind classifies an object change emitted by a transaction.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeMutated ChangeKind = "mutated"
)

// ObjectChange is one entry of a transaction's effect list.
type ObjectChange struct {
	Kind       ChangeKind     `json:"kind"`
	ObjectType string         `json:"objectType"`
	ID         ObjectID       `json:"id"`
	Owner      wallet.Address `json:"owner"`
}

// Event is a structured event emitted by a transaction.
type Event struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields,omitempty"`
}

// TxResult is the parsed effect of a submitted or dry-run transaction.
type TxResult struct {
	Digest  string         `json:"digest"`
	Status  Status         `json:"status"`
	Changes []ObjectChange `json:"changes,omitempty"`
	Events  []Event        `json:"events,omitempty"`
}

// CreatedOfType returns the first created object whose type has the given
// suffix (e.g. "::allowlist::Allowlist").
func (r *TxResult) CreatedOfType(typeSuffix string) (ObjectID, bool) {
	if r == nil {
		return "", false
	}
	for _, ch := range r.Changes {
		if ch.Kind == ChangeCreated && strings.HasSuffix(ch.ObjectType, typeSuffix) {
			return ch.ID, true
		}
	}
	return "", false
}

// Object is a read view of on-chain object state. Fields carry the object's
// contents in canonical string form, mirroring the RPC read API.
type Object struct {
	ID     ObjectID          `json:"id"`
	Type   string            `json:"type"`
	Owner  wallet.Address    `json:"owner"`
	Fields map[string]string `json:"fields,omitempty"`
}
