package grpcledger

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/wallet"
)

// Server exposes a ledger.Client over gRPC.
type Server struct {
	UnimplementedLedgerServer
	Ledger ledger.Client
}

type callRequest struct {
	Sender wallet.Address  `json:"sender"`
	Call   ledger.MoveCall `json:"call"`
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return s.execute(ctx, in, true)
}

func (s *Server) DryRun(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return s.execute(ctx, in, false)
}

func (s *Server) execute(ctx context.Context, in *wrapperspb.BytesValue, mutate bool) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	var req callRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "undecodable call request")
	}

	var res *ledger.TxResult
	var err error
	if mutate {
		res, err = s.Ledger.Submit(ctx, req.Sender, req.Call)
	} else {
		res, err = s.Ledger.DryRun(ctx, req.Sender, req.Call)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding transaction result")
	}
	return wrapperspb.Bytes(body), nil
}

func (s *Server) GetObject(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	obj, err := s.Ledger.GetObject(ctx, ledger.ObjectID(in.GetValue()))
	if err != nil {
		return nil, mapErr(err)
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding object")
	}
	return wrapperspb.Bytes(body), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case ledger.IsObjectNotFound(err):
		return status.Error(codes.NotFound, ledger.ErrObjectNotFound.Error())
	case errors.Is(err, ledger.ErrUnknownTarget):
		return status.Error(codes.InvalidArgument, ledger.ErrUnknownTarget.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
