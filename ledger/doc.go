// Package ledger defines the on-chain collaborator boundary for the
// sealvault pipeline: transaction submission with parsed effects, read-only
// dry runs, and object reads.
//
// The pipeline never assumes a business effect from a successful submission
// alone; object ids are parsed out of the returned change list.
package ledger
