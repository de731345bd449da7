package grpcledger

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/ledger/memledger"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/wallet"
)

const testPackage = ledger.ObjectID("0x00000000000000000000000000000000000000000000000000000000000000a1")

func dialBuf(t *testing.T, backend ledger.Client) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterLedgerServer(srv, &Server{Ledger: backend})

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
	return &Client{cc: cc, client: NewLedgerClient(cc), Timeout: 2 * time.Second}
}

// The remote ledger must be drop-in: the policy store is exercised through
// the gRPC client exactly as it is against memledger directly.
func TestGRPCLedger_PolicyLifecycle(t *testing.T) {
	client := dialBuf(t, memledger.New(testPackage))
	ctx := context.Background()

	store, err := policy.New(client, testPackage)
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	admin, _ := wallet.Generate()
	member, _ := wallet.Generate()

	h, err := store.Create(ctx, admin, "contract-g")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AddParties(ctx, h, admin, []wallet.Address{member.Address()}); err != nil {
		t.Fatalf("AddParties: %v", err)
	}
	info, err := store.Get(ctx, h.PolicyID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(info.Parties) != 1 || info.Parties[0] != member.Address() {
		t.Fatalf("parties did not survive the wire: %+v", info.Parties)
	}
}

func TestGRPCLedger_NotFoundCrossesWire(t *testing.T) {
	client := dialBuf(t, memledger.New(testPackage))
	_, err := client.GetObject(context.Background(), "0xdead")
	if !ledger.IsObjectNotFound(err) {
		t.Fatalf("got %v, want ErrObjectNotFound", err)
	}
}

func TestGRPCLedger_UnknownTargetCrossesWire(t *testing.T) {
	client := dialBuf(t, memledger.New(testPackage))
	admin, _ := wallet.Generate()
	_, err := client.Submit(context.Background(), admin.Address(), ledger.MoveCall{
		Package: "0xbeef", Module: "allowlist", Function: "create_allowlist_entry",
	})
	if err != ledger.ErrUnknownTarget {
		t.Fatalf("got %v, want ErrUnknownTarget", err)
	}
}
