// Package grpcledger exposes a ledger.Client over gRPC and provides the
// matching client adapter. It lets the CLI, the orchestrators and every key
// server daemon share a single authoritative ledger instead of private
// in-process views.
package grpcledger
