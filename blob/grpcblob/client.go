package grpcblob

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
	"xsign.co/sealvault/seal"
)

// Client implements blob.Store over the blob gRPC service.
//
// The client never trusts the remote: ids on writes and bytes on reads are
// re-verified against the locally computed blob id, so a misbehaving server
// surfaces as ErrIDMismatch instead of silently handing back wrong content.
type Client struct {
	cc     *grpc.ClientConn
	client BlobsClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ blob.Store = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, seal.Wrap(seal.KindChain, "SEAL-BLOB-005", "blob service dial failed", err)
	}
	return &Client{cc: cc, client: NewBlobsClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	if err := c.ready(); err != nil {
		return cid.Undef, err
	}
	expected, err := blobid.FromBytes(data)
	if err != nil {
		return cid.Undef, err
	}

	ctx, cancel := c.callCtx()
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, mapRPC(err)
	}
	id, err := blobid.Parse(reply.GetValue())
	if err != nil || !id.Defined() {
		return cid.Undef, blob.ErrInvalidID
	}
	if id != expected {
		return cid.Undef, blob.ErrIDMismatch
	}
	return id, nil
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, blob.ErrInvalidID
	}

	ctx, cancel := c.callCtx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	data := reply.GetValue()
	got, err := blobid.FromBytes(data)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, blob.ErrIDMismatch
	}
	return data, nil
}

// Has reports presence best-effort: a transport failure reads as absent,
// matching how the replicating store treats an unreachable replica.
func (c *Client) Has(id cid.Cid) bool {
	if c.ready() != nil || !id.Defined() {
		return false
	}
	ctx, cancel := c.callCtx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ready() error {
	if c == nil || c.client == nil {
		return seal.New(seal.KindConfig, "SEAL-BLOB-006", "blob client not connected")
	}
	return nil
}

func (c *Client) callCtx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
