package grpcblob

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
)

// Server exposes a blob.Store over the blob gRPC service.
type Server struct {
	UnimplementedBlobsServer
	Store blob.Store
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	b := in.GetValue()
	// The id contract is enforced on the server side too, so a buggy backend
	// cannot hand out ids that do not match the bytes.
	expected, err := blobid.FromBytes(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "blob id computation failed")
	}
	id, err := s.Store.Put(b)
	if err != nil {
		return nil, mapErr(err)
	}
	if id != expected {
		return nil, status.Error(codes.DataLoss, blob.ErrIDMismatch.Error())
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := blobid.Parse(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, blob.ErrInvalidID.Error())
	}
	b, err := s.Store.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	got, err := blobid.FromBytes(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "blob id computation failed")
	}
	if got != id {
		return nil, status.Error(codes.DataLoss, blob.ErrIDMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := blobid.Parse(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, blob.ErrInvalidID.Error())
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case err == blob.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case err == blob.ErrInvalidID:
		return status.Error(codes.InvalidArgument, err.Error())
	case err == blob.ErrIDMismatch:
		return status.Error(codes.DataLoss, err.Error())
	case err == blob.ErrImmutable:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
