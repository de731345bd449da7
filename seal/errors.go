package seal

import "errors"

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind/RuleID rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindConfig marks a missing or invalid pipeline configuration
	// (no key-server set, no policy package id). Fatal, never retried.
	KindConfig Kind = "Config"

	// KindInput marks malformed caller input (oversized identity fields,
	// bad addresses, undecodable payloads). Fatal for the call.
	KindInput Kind = "Input"

	// KindAuth marks an invalid signature or rejected credential.
	// Fatal for the call, never retried.
	KindAuth Kind = "Auth"

	// KindNotAuthorized marks a caller whose address is not in the
	// policy's party set. Fatal, never retried, and deliberately coarse:
	// callers learn "not authorized", not which check failed.
	KindNotAuthorized Kind = "NotAuthorized"

	// KindNotFound marks a policy or object the ledger does not know.
	KindNotFound Kind = "NotFound"

	// KindChain marks a transient ledger submission failure.
	// Retryable with backoff.
	KindChain Kind = "Chain"

	// KindQuorum marks fewer than the configured threshold of key servers
	// responding. Retryable once conditions change.
	KindQuorum Kind = "Quorum"

	// KindExpiredCredential marks a session credential past its TTL.
	// Recovered by re-authenticating, never by reusing the credential.
	KindExpiredCredential Kind = "ExpiredCredential"

	// KindCrypto marks an encryption or decryption primitive failure.
	KindCrypto Kind = "Crypto"

	// KindInternal marks invariant violations inside the pipeline.
	KindInternal Kind = "Internal"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g., SEAL-ID-001, SEAL-POL-102) that names
// the violated invariant or failed check.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error with no cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Wrap returns a structured error wrapping cause.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// Retryable reports whether a retry of the same call may succeed.
//
// Chain and Quorum failures are transient. ExpiredCredential is retryable
// only after re-authentication, so it is not reported here.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindChain, KindQuorum:
		return true
	default:
		return false
	}
}
