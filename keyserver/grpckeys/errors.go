package grpckeys

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xsign.co/sealvault/seal"
)

// toStatus converts a key-server error into a gRPC status. The rule id is
// folded into the message ("SEAL-XXX-NNN: ...") so clients can recover it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *seal.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, err.Error())
	}
	msg := e.Message
	if e.RuleID != "" {
		msg = e.RuleID + ": " + msg
	}
	return status.Error(codeForKind(e.Kind), msg)
}

func codeForKind(k seal.Kind) codes.Code {
	switch k {
	case seal.KindInput:
		return codes.InvalidArgument
	case seal.KindAuth:
		return codes.Unauthenticated
	case seal.KindNotAuthorized:
		return codes.PermissionDenied
	case seal.KindExpiredCredential:
		return codes.FailedPrecondition
	case seal.KindNotFound:
		return codes.NotFound
	case seal.KindChain, seal.KindQuorum:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// fromStatus reverses toStatus so callers see the same error kinds whether
// the key server runs in-process or behind gRPC.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return seal.Wrap(seal.KindInternal, "SEAL-RPC-001", "key service call failed", err)
	}
	id, msg := splitRuleID(st.Message())
	switch st.Code() {
	case codes.InvalidArgument:
		return seal.New(seal.KindInput, orID(id, "SEAL-RPC-010"), msg)
	case codes.Unauthenticated:
		return seal.New(seal.KindAuth, orID(id, "SEAL-RPC-011"), msg)
	case codes.PermissionDenied:
		return seal.New(seal.KindNotAuthorized, orID(id, "SEAL-RPC-012"), msg)
	case codes.FailedPrecondition:
		return seal.New(seal.KindExpiredCredential, orID(id, "SEAL-RPC-013"), msg)
	case codes.NotFound:
		return seal.New(seal.KindNotFound, orID(id, "SEAL-RPC-014"), msg)
	case codes.Unavailable, codes.DeadlineExceeded:
		return seal.Wrap(seal.KindChain, orID(id, "SEAL-RPC-015"), msg, err)
	default:
		return seal.Wrap(seal.KindInternal, orID(id, "SEAL-RPC-001"), msg, err)
	}
}

// splitRuleID peels a "SEAL-XXX-NNN: " prefix off a status message.
func splitRuleID(msg string) (id, rest string) {
	i := strings.Index(msg, ": ")
	if i <= 0 || !strings.HasPrefix(msg[:i], "SEAL-") {
		return "", msg
	}
	return msg[:i], msg[i+2:]
}

func orID(id, fallback string) string {
	if id != "" {
		return id
	}
	return fallback
}
