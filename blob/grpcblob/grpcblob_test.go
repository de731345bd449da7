package grpcblob

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
	"xsign.co/sealvault/blob/memblob"
	"xsign.co/sealvault/seal"
)

func dialBuf(t *testing.T, store blob.Store) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterBlobsServer(srv, &Server{Store: store})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	return &Client{cc: cc, client: NewBlobsClient(cc), Timeout: 2 * time.Second}
}

func TestGRPCBlob_RoundTrip(t *testing.T) {
	client := dialBuf(t, memblob.New())

	payload := []byte("hello grpcblob")
	id, err := client.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !id.Defined() {
		t.Fatalf("expected defined id")
	}
	if !client.Has(id) {
		t.Fatalf("Has: expected true")
	}
	got, err := client.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPCBlob_NotFoundCrossesWire(t *testing.T) {
	client := dialBuf(t, memblob.New())

	id, err := blobid.FromBytes([]byte("never stored"))
	if err != nil {
		t.Fatalf("blobid.FromBytes: %v", err)
	}
	if client.Has(id) {
		t.Fatalf("Has: expected false")
	}
	if _, err := client.Get(id); !blob.IsNotFound(err) {
		t.Fatalf("Get: got %v, want ErrNotFound", err)
	}
}

func TestGRPCBlob_TransportFailureIsChainKind(t *testing.T) {
	// The listener is torn down before any call, so every RPC fails in the
	// transport rather than in the store.
	lis := bufconn.Listen(1024)
	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	_ = lis.Close()
	t.Cleanup(func() { _ = cc.Close() })
	client := &Client{cc: cc, client: NewBlobsClient(cc), Timeout: 200 * time.Millisecond}

	_, err = client.Put([]byte("unreachable"))
	if err == nil {
		t.Fatalf("Put against a dead listener succeeded")
	}
	if !seal.IsKind(err, seal.KindChain) {
		t.Fatalf("got %v, want Chain", err)
	}
	if !seal.Retryable(err) {
		t.Fatalf("transport failure must be retryable")
	}

	id, err := blobid.FromBytes([]byte("x"))
	if err != nil {
		t.Fatalf("blobid.FromBytes: %v", err)
	}
	if client.Has(id) {
		t.Fatalf("Has against a dead listener reported presence")
	}
}

func TestGRPCBlob_UnconnectedClient(t *testing.T) {
	var client *Client
	if _, err := client.Put([]byte("x")); !seal.IsKind(err, seal.KindConfig) {
		t.Fatalf("nil client Put: got %v, want Config", err)
	}
	empty := &Client{}
	if _, err := empty.Get(cid.Undef); !seal.IsKind(err, seal.KindConfig) {
		t.Fatalf("unconnected Get: got %v, want Config", err)
	}
}
