package grpckeys

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/seal"
)

// Client is a keyserver.KeyServer backed by a remote key service.
type Client struct {
	cc *grpc.ClientConn
	kc KeyServiceClient
}

var _ keyserver.KeyServer = (*Client)(nil)

// NewClient wraps an established gRPC connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{kc: NewKeyServiceClient(cc)}
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

// Dial connects to a remote key server.
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
	return &Client{cc: cc, kc: NewKeyServiceClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) WrapShare(ctx context.Context, docID identity.Identity, share []byte) ([]byte, error) {
	body, err := json.Marshal(wrapRequest{Identity: docID, Share: share})
	if err != nil {
		return nil, seal.Wrap(seal.KindInternal, "SEAL-RPC-030", "encoding wrap request", err)
	}
	out, err := c.kc.Wrap(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return nil, fromStatus(err)
	}
	return out.GetValue(), nil
}

func (c *Client) UnwrapShare(ctx context.Context, req keyserver.UnwrapRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, seal.Wrap(seal.KindInternal, "SEAL-RPC-031", "encoding unwrap request", err)
	}
	out, err := c.kc.Unwrap(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return nil, fromStatus(err)
	}
	return out.GetValue(), nil
}
