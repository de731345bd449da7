package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/keyserver/grpckeys"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/ledger/grpcledger"
)

func main() {
	fs := flag.NewFlagSet("sealkeysd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7793", "listen address")
	ledgerTarget := fs.String("ledger-target", "", "grpcledger target host:port")
	packageID := fs.String("package", "", "published allowlist package id (0x-hex)")
	masterHex := fs.String("master-secret-hex", "", "32-byte master secret (64 hex chars); random when empty")
	requireSigned := fs.Bool("require-signed-session", false, "refuse bootstrap credentials minted from raw private keys")
	dialTimeout := fs.Duration("ledger-dial-timeout", 5*time.Second, "ledger dial timeout")
	logLevel := fs.String("log-level", "info", "logrus level (debug, info, warn, error)")

	_ = fs.Parse(os.Args[1:])

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	if *ledgerTarget == "" {
		fmt.Fprintln(os.Stderr, "missing --ledger-target")
		os.Exit(2)
	}
	if *packageID == "" {
		fmt.Fprintln(os.Stderr, "missing --package")
		os.Exit(2)
	}

	chain, err := grpcledger.Dial(*ledgerTarget, grpcledger.DialOptions{Timeout: *dialTimeout})
	if err != nil {
		log.WithError(err).Fatal("ledger dial failed")
	}
	defer chain.Close()

	var srv *keyserver.Server
	if h := strings.TrimSpace(*masterHex); h != "" {
		master, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
		if err != nil {
			log.WithError(err).Fatal("invalid --master-secret-hex")
		}
		srv, err = keyserver.NewServer(master, chain, ledger.ObjectID(*packageID))
		if err != nil {
			log.WithError(err).Fatal("key server setup failed")
		}
	} else {
		srv, err = keyserver.NewRandomServer(chain, ledger.ObjectID(*packageID))
		if err != nil {
			log.WithError(err).Fatal("key server setup failed")
		}
		log.Warn("running with a random master secret: escrowed shares will be unrecoverable after restart")
	}
	srv.RequireSignedSession = *requireSigned

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}
	defer lis.Close()

	g := grpc.NewServer()
	grpckeys.RegisterKeyServiceServer(g, grpckeys.NewServer(srv))

	log.WithFields(logrus.Fields{
		"listen":  lis.Addr().String(),
		"ledger":  *ledgerTarget,
		"package": *packageID,
	}).Info("sealkeysd listening")
	if err := g.Serve(lis); err != nil {
		log.WithError(err).Fatal("serve failed")
	}
}
