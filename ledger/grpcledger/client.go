package grpcledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/wallet"
)

// Client implements ledger.Client over the ledger gRPC service, so every
// pipeline component and key server can share one authoritative ledger view.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ ledger.Client = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

func Dial(target string, opts DialOptions) (*Client, error) {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	cc, err := grpc.DialContext(ctx, target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Submit(ctx context.Context, sender wallet.Address, call ledger.MoveCall) (*ledger.TxResult, error) {
	return c.execute(ctx, sender, call, true)
}

func (c *Client) DryRun(ctx context.Context, sender wallet.Address, call ledger.MoveCall) (*ledger.TxResult, error) {
	return c.execute(ctx, sender, call, false)
}

func (c *Client) execute(ctx context.Context, sender wallet.Address, call ledger.MoveCall, mutate bool) (*ledger.TxResult, error) {
	body, err := json.Marshal(callRequest{Sender: sender, Call: call})
	if err != nil {
		return nil, fmt.Errorf("grpcledger: encoding call: %w", err)
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	var reply *wrapperspb.BytesValue
	if mutate {
		reply, err = c.client.Submit(ctx, wrapperspb.Bytes(body))
	} else {
		reply, err = c.client.DryRun(ctx, wrapperspb.Bytes(body))
	}
	if err != nil {
		return nil, mapRPC(err)
	}
	var res ledger.TxResult
	if err := json.Unmarshal(reply.GetValue(), &res); err != nil {
		return nil, fmt.Errorf("grpcledger: decoding transaction result: %w", err)
	}
	return &res, nil
}

func (c *Client) GetObject(ctx context.Context, id ledger.ObjectID) (*ledger.Object, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.GetObject(ctx, wrapperspb.String(string(id)))
	if err != nil {
		return nil, mapRPC(err)
	}
	var obj ledger.Object
	if err := json.Unmarshal(reply.GetValue(), &obj); err != nil {
		return nil, fmt.Errorf("grpcledger: decoding object: %w", err)
	}
	return &obj, nil
}

func (c *Client) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return ledger.ErrObjectNotFound
	case codes.InvalidArgument:
		if st.Message() == ledger.ErrUnknownTarget.Error() {
			return ledger.ErrUnknownTarget
		}
		return err
	default:
		return err
	}
}
