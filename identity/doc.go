// Package identity encodes document identities for identity-based
// encryption against an on-chain access policy.
package identity
