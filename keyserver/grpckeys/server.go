package grpckeys

import (
	"context"
	"encoding/json"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/seal"
)

// Server exposes a keyserver.KeyServer over gRPC.
type Server struct {
	UnimplementedKeyServiceServer
	ks keyserver.KeyServer
}

// NewServer wraps ks for registration with RegisterKeyServiceServer.
func NewServer(ks keyserver.KeyServer) *Server {
	return &Server{ks: ks}
}

type wrapRequest struct {
	Identity identity.Identity `json:"identity"`
	Share    []byte            `json:"share"`
}

func (s *Server) Wrap(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req wrapRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, toStatus(seal.Wrap(seal.KindInput, "SEAL-RPC-020", "undecodable wrap request", err))
	}
	wrapped, err := s.ks.WrapShare(ctx, req.Identity, req.Share)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(wrapped), nil
}

func (s *Server) Unwrap(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req keyserver.UnwrapRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, toStatus(seal.Wrap(seal.KindInput, "SEAL-RPC-021", "undecodable unwrap request", err))
	}
	share, err := s.ks.UnwrapShare(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(share), nil
}
