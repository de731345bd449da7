package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/ledger/grpcledger"
	"xsign.co/sealvault/ledger/memledger"
)

// sealledgerd serves a single in-memory allowlist ledger over gRPC, the
// shared source of truth for a local sealvault cluster. Production
// deployments point the pipeline at a real chain instead.
func main() {
	fs := flag.NewFlagSet("sealledgerd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7792", "listen address")
	packageID := fs.String("package", "", "published allowlist package id (0x-hex)")

	_ = fs.Parse(os.Args[1:])
	if *packageID == "" {
		fmt.Fprintln(os.Stderr, "missing --package")
		os.Exit(2)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	srv := grpc.NewServer()
	grpcledger.RegisterLedgerServer(srv, &grpcledger.Server{
		Ledger: memledger.New(ledger.ObjectID(*packageID)),
	})

	fmt.Fprintf(os.Stderr, "sealledgerd listening on %s (package=%s)\n", lis.Addr().String(), *packageID)
	if err := srv.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
