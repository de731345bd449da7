package grpcblob

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/seal"
)

// mapRPC translates a transport failure into the caller-facing error
// surface: blob sentinels for store semantics the server encoded as status
// codes, structured errors for everything that is a transport or service
// problem rather than a property of the blob.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return seal.Wrap(seal.KindChain, "SEAL-BLOB-001", "blob service call failed", err)
	}

	switch st.Code() {
	case codes.NotFound:
		return blob.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed/undefined ids.
		return blob.ErrInvalidID
	case codes.DataLoss:
		// Server uses DataLoss when bytes do not match the requested id.
		return blob.ErrIDMismatch
	case codes.FailedPrecondition:
		return blob.ErrImmutable
	case codes.Unavailable, codes.DeadlineExceeded:
		return seal.Wrap(seal.KindChain, "SEAL-BLOB-002", "blob service unreachable", err)
	case codes.ResourceExhausted:
		return seal.Wrap(seal.KindInput, "SEAL-BLOB-003", "blob exceeds the service message limit", err)
	}

	// Older servers fold sentinels into Unknown statuses; match by message
	// before giving up.
	if sentinel := sentinelByMessage(st.Message()); sentinel != nil {
		return sentinel
	}
	return seal.Wrap(seal.KindInternal, "SEAL-BLOB-004", "blob service error", err)
}

func sentinelByMessage(msg string) error {
	for _, sentinel := range []error{
		blob.ErrNotFound,
		blob.ErrInvalidID,
		blob.ErrIDMismatch,
		blob.ErrImmutable,
	} {
		if msg == sentinel.Error() {
			return sentinel
		}
	}
	return nil
}
