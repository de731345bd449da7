// Package policy manages on-chain allowlist policies: creation, membership,
// blob publication, and approval-proof construction.
//
// A policy is mutated only through its capability, issued once at creation
// to the creator. Membership in the party set is the sole access-control
// predicate for decryption.
package policy
