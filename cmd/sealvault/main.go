package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"xsign.co/sealvault/blob/registry"
	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/keyserver/grpckeys"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/ledger/grpcledger"
	"xsign.co/sealvault/pipeline"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/wallet"

	_ "xsign.co/sealvault/blob/grpcblob"
	_ "xsign.co/sealvault/blob/localfs"
	_ "xsign.co/sealvault/blob/memblob"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "keygen":
		return cmdKeygen(args[1:], out, errOut)
	case "encrypt":
		return cmdEncrypt(args[1:], out, errOut)
	case "upload":
		return cmdUpload(args[1:], out, errOut)
	case "decrypt":
		return cmdDecrypt(args[1:], out, errOut)
	case "policy":
		return cmdPolicy(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "sealvault: access-controlled document encryption CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sealvault keygen [--seed-hex <64hex>]")
	fmt.Fprintln(w, "  sealvault encrypt --ledger-target <host:port> --package <0xid> --key-servers <name=host:port,...> --threshold <n> \\")
	fmt.Fprintln(w, "                    --admin-seed-hex <64hex> --contract <id> --parties <0xaddr,...> --store <backend> [store flags] \\")
	fmt.Fprintln(w, "                    [--file <path>] [--base64] [--allow-fallback]")
	fmt.Fprintln(w, "  sealvault upload --store <backend> [store flags] [--file <path>]")
	fmt.Fprintln(w, "  sealvault decrypt --ledger-target <host:port> --package <0xid> --key-servers <name=host:port,...> --threshold <n> \\")
	fmt.Fprintln(w, "                    --blob <id> --policy <0xid> --doc <hex> --seed-hex <64hex> --store <backend> [store flags] [--out <path>]")
	fmt.Fprintln(w, "  sealvault policy show --ledger-target <host:port> --package <0xid> --policy <0xid>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex / --admin-seed-hex take a 32-byte ed25519 seed (64 hex chars)")
	fmt.Fprintln(w, "  - encrypt and upload read the document from --file, or stdin when --file is omitted")
	fmt.Fprintln(w, "  - upload stores the content as-is, without any policy or encryption; it serves")
	fmt.Fprintln(w, "    the plaintext branch of a fallback result")
	fmt.Fprintln(w, "  - encrypt prints a JSON result; decrypt writes the document to stdout or --out")
	fmt.Fprintln(w, "  - decrypt with --seed-hex uses the lower-trust bootstrap session; daemons running")
	fmt.Fprintln(w, "    with --require-signed-session refuse it")
}

func cmdKeygen(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var seedHex string
	fs.StringVar(&seedHex, "seed-hex", "", "use this seed instead of sampling one")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		seed, err = wallet.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid seed: %v\n", err)
			return 1
		}
	} else {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "sampling seed: %v\n", err)
			return 1
		}
	}
	kp, err := wallet.FromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "deriving key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "address: %s\n", kp.Address())
	fmt.Fprintf(out, "seed:    %s\n", hex.EncodeToString(seed))
	return 0
}

// clusterFlags are the flags shared by encrypt and decrypt.
type clusterFlags struct {
	ledgerTarget string
	packageID    string
	keyServers   string
	threshold    int
	store        string
	timeout      time.Duration
	verbose      bool
}

func (c *clusterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.ledgerTarget, "ledger-target", "", "grpcledger target host:port")
	fs.StringVar(&c.packageID, "package", "", "published allowlist package id (0x-hex)")
	fs.StringVar(&c.keyServers, "key-servers", "", "comma-separated name=host:port key server list")
	fs.IntVar(&c.threshold, "threshold", 0, "key server quorum threshold")
	fs.StringVar(&c.store, "store", "grpc", "blob store backend name")
	fs.DurationVar(&c.timeout, "timeout", 10*time.Second, "per-call timeout")
	fs.BoolVar(&c.verbose, "verbose", false, "log pipeline steps to stderr")
	registry.RegisterFlags(fs, registry.UsageCLI)
}

// open dials the cluster and assembles a pipeline config. The returned
// cleanup closes every connection it opened.
func (c *clusterFlags) open(errOut io.Writer) (pipeline.Config, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}
	fail := func(err error) (pipeline.Config, func(), error) {
		closeAll()
		return pipeline.Config{}, nil, err
	}

	if c.ledgerTarget == "" {
		return fail(fmt.Errorf("missing --ledger-target"))
	}
	if c.packageID == "" {
		return fail(fmt.Errorf("missing --package"))
	}

	chain, err := grpcledger.Dial(c.ledgerTarget, grpcledger.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		return fail(fmt.Errorf("ledger dial: %w", err))
	}
	cleanup = append(cleanup, func() { _ = chain.Close() })
	chain.Timeout = c.timeout

	servers, err := c.dialKeyServers(&cleanup)
	if err != nil {
		return fail(err)
	}

	store, storeClose, err := registry.Open(c.store, registry.UsageCLI)
	if err != nil {
		return fail(fmt.Errorf("blob store: %w", err))
	}
	if storeClose != nil {
		cleanup = append(cleanup, func() { _ = storeClose() })
	}

	cfg := pipeline.Config{
		Ledger:        chain,
		PolicyPackage: ledger.ObjectID(c.packageID),
		KeyServers:    servers,
		Threshold:     c.threshold,
		Blobs:         store,
		CallTimeout:   c.timeout,
	}
	if c.verbose {
		log := logrus.New()
		log.SetOutput(errOut)
		cfg.Logger = log
	}
	return cfg, closeAll, nil
}

func (c *clusterFlags) dialKeyServers(cleanup *[]func()) ([]keyserver.NamedServer, error) {
	if c.keyServers == "" {
		return nil, fmt.Errorf("missing --key-servers")
	}
	var servers []keyserver.NamedServer
	for _, entry := range strings.Split(c.keyServers, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, target, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("key server entry %q: want name=host:port", entry)
		}
		client, err := grpckeys.Dial(target, grpckeys.DialOptions{Timeout: 5 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("key server %s dial: %w", name, err)
		}
		*cleanup = append(*cleanup, func() { _ = client.Close() })
		servers = append(servers, keyserver.NamedServer{Name: name, Server: client})
	}
	return servers, nil
}

func cmdEncrypt(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cluster clusterFlags
	cluster.register(fs)
	var (
		adminSeed     string
		contractID    string
		partiesFlag   string
		filePath      string
		isBase64      bool
		allowFallback bool
	)
	fs.StringVar(&adminSeed, "admin-seed-hex", "", "admin ed25519 seed (64 hex chars)")
	fs.StringVar(&contractID, "contract", "", "contract id the document belongs to")
	fs.StringVar(&partiesFlag, "parties", "", "comma-separated authorized party addresses")
	fs.StringVar(&filePath, "file", "", "document path (stdin when omitted)")
	fs.BoolVar(&isBase64, "base64", false, "document content is base64")
	fs.BoolVar(&allowFallback, "allow-fallback", false, "permit the explicit plaintext fallback result")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	seed, err := wallet.ParseSeedHex(adminSeed)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --admin-seed-hex: %v\n", err)
		return 1
	}
	admin, err := wallet.FromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "deriving admin key: %v\n", err)
		return 1
	}

	document, err := readDocument(filePath)
	if err != nil {
		fmt.Fprintf(errOut, "reading document: %v\n", err)
		return 1
	}

	cfg, closeAll, err := cluster.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer closeAll()
	cfg.AllowPlaintextFallback = allowFallback

	enc, err := pipeline.NewEncryptor(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	res, err := enc.Handle(context.Background(), admin, pipeline.EncryptRequest{
		ContractID:      contractID,
		DocumentContent: string(document),
		IsBase64:        isBase64,
		SignerAddresses: splitNonEmpty(partiesFlag),
	})
	if err != nil {
		fmt.Fprintf(errOut, "encrypt: %v\n", err)
		return 1
	}
	body, _ := json.MarshalIndent(res, "", "  ")
	fmt.Fprintln(out, string(body))
	return 0
}

// cmdUpload puts a document into a blob store verbatim. No policy is
// provisioned and nothing is encrypted; this is the manual follow-up to a
// fallback encrypt result.
func cmdUpload(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		storeName string
		filePath  string
	)
	fs.StringVar(&storeName, "store", "grpc", "blob store backend name")
	fs.StringVar(&filePath, "file", "", "document path (stdin when omitted)")
	registry.RegisterFlags(fs, registry.UsageCLI)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	document, err := readDocument(filePath)
	if err != nil {
		fmt.Fprintf(errOut, "reading document: %v\n", err)
		return 1
	}

	store, storeClose, err := registry.Open(storeName, registry.UsageCLI)
	if err != nil {
		fmt.Fprintf(errOut, "blob store: %v\n", err)
		return 2
	}
	if storeClose != nil {
		defer storeClose()
	}

	id, err := store.Put(document)
	if err != nil {
		fmt.Fprintf(errOut, "upload: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id.String())
	return 0
}

func cmdDecrypt(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cluster clusterFlags
	cluster.register(fs)
	var (
		blobID   string
		policyID string
		docHex   string
		seedHex  string
		outPath  string
	)
	fs.StringVar(&blobID, "blob", "", "blob id of the encrypted artifact")
	fs.StringVar(&policyID, "policy", "", "policy object id (0x-hex)")
	fs.StringVar(&docHex, "doc", "", "document identity (hex)")
	fs.StringVar(&seedHex, "seed-hex", "", "caller ed25519 seed (64 hex chars, bootstrap session)")
	fs.StringVar(&outPath, "out", "", "write the document here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, closeAll, err := cluster.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer closeAll()

	dec, err := pipeline.NewDecryptor(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	res, err := dec.Handle(context.Background(), pipeline.DecryptRequest{
		BlobID:         blobID,
		PolicyID:       policyID,
		DocumentID:     docHex,
		UserPrivateKey: seedHex,
	})
	if err != nil {
		fmt.Fprintf(errOut, "decrypt: %v\n", err)
		return 1
	}
	document, err := base64.StdEncoding.DecodeString(res.DecryptedDocument)
	if err != nil {
		fmt.Fprintf(errOut, "decoding response: %v\n", err)
		return 1
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, document, 0o600); err != nil {
			fmt.Fprintf(errOut, "writing %s: %v\n", outPath, err)
			return 1
		}
		return 0
	}
	_, _ = out.Write(document)
	return 0
}

func cmdPolicy(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 || args[0] != "show" {
		fmt.Fprintln(errOut, "usage: sealvault policy show --ledger-target <host:port> --package <0xid> --policy <0xid>")
		return 2
	}
	fs := flag.NewFlagSet("policy show", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		ledgerTarget string
		packageID    string
		policyID     string
	)
	fs.StringVar(&ledgerTarget, "ledger-target", "", "grpcledger target host:port")
	fs.StringVar(&packageID, "package", "", "published allowlist package id (0x-hex)")
	fs.StringVar(&policyID, "policy", "", "policy object id (0x-hex)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if ledgerTarget == "" || packageID == "" || policyID == "" {
		fmt.Fprintln(errOut, "usage: sealvault policy show --ledger-target <host:port> --package <0xid> --policy <0xid>")
		return 2
	}

	chain, err := grpcledger.Dial(ledgerTarget, grpcledger.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		fmt.Fprintf(errOut, "ledger dial: %v\n", err)
		return 2
	}
	defer chain.Close()

	store, err := policy.New(chain, ledger.ObjectID(packageID))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	info, err := store.Get(context.Background(), ledger.ObjectID(policyID))
	if err != nil {
		fmt.Fprintf(errOut, "policy show: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "policy: %s\n", info.ID)
	fmt.Fprintf(out, "label:  %s\n", info.Label)
	fmt.Fprintf(out, "state:  %s\n", info.State)
	for _, p := range info.Parties {
		fmt.Fprintf(out, "party:  %s\n", p)
	}
	for doc, blobID := range info.Blobs {
		fmt.Fprintf(out, "blob:   %s -> %s\n", doc, blobID)
	}
	return 0
}

func readDocument(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
