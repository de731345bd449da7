// Package grpckeys exposes a key server over gRPC and provides the matching
// client adapter. Error kinds survive the wire, so callers handle remote and
// in-process key servers identically.
package grpckeys
