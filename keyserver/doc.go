// Package keyserver implements the threshold key-release protocol: a
// document's data-encryption key is Shamir-split across independent key
// servers, each share wrapped under an identity-bound server key, and
// released only to callers whose policy approval each server confirms
// against its own ledger view.
package keyserver
