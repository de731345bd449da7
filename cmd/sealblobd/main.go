package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/grpcblob"
	"xsign.co/sealvault/blob/registry"
	"xsign.co/sealvault/blob/storeconfig"

	_ "xsign.co/sealvault/blob/localfs"
	_ "xsign.co/sealvault/blob/memblob"
)

func main() {
	fs := flag.NewFlagSet("sealblobd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7791", "listen address")
	store := fs.String("store", "localfs", "blob store backend name")
	configPath := fs.String("config", "", "JSON store config file (overrides --store)")
	listStores := fs.Bool("list-stores", false, "List supported backends and exit")

	registry.RegisterFlags(fs, registry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listStores {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	var (
		s       blob.Store
		closeFn func() error
		err     error
	)
	if *configPath != "" {
		var cfg storeconfig.Config
		cfg, err = storeconfig.LoadFile(*configPath)
		if err == nil {
			s, closeFn, err = cfg.Open(registry.UsageDaemon)
		}
	} else {
		s, closeFn, err = registry.Open(*store, registry.UsageDaemon)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	srv := grpc.NewServer()
	grpcblob.RegisterBlobsServer(srv, &grpcblob.Server{Store: s})

	fmt.Fprintf(os.Stderr, "sealblobd listening on %s (store=%s)\n", lis.Addr().String(), *store)
	if err := srv.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
