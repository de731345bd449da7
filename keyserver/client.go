package keyserver

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/session"
)

// Client fans key operations out across a set of independent key servers
// and requires quorum agreement.
//
// A single server's response is never sufficient: both encryption and
// decryption succeed only when at least Threshold servers cooperated, and
// tolerate any minority being unreachable.
type Client struct {
	Servers   []NamedServer
	Threshold int

	// Timeout bounds each per-server call when non-zero.
	Timeout time.Duration

	// Logger receives per-server failure detail. Defaults to a discard
	// logger; orchestrators inject theirs.
	Logger logrus.FieldLogger
}

// NewClient validates the server set and threshold.
func NewClient(servers []NamedServer, threshold int) (*Client, error) {
	if len(servers) == 0 {
		return nil, seal.New(seal.KindConfig, "SEAL-KS-040", "no key servers configured")
	}
	if threshold < 1 || threshold > len(servers) {
		return nil, seal.New(seal.KindConfig, "SEAL-KS-041", "threshold out of range for server set")
	}
	seen := make(map[string]struct{}, len(servers))
	for _, s := range servers {
		if s.Name == "" || s.Server == nil {
			return nil, seal.New(seal.KindConfig, "SEAL-KS-042", "key server entries need a name and an implementation")
		}
		if _, dup := seen[s.Name]; dup {
			return nil, seal.New(seal.KindConfig, "SEAL-KS-043", fmt.Sprintf("duplicate key server name %q", s.Name))
		}
		seen[s.Name] = struct{}{}
	}
	discard := logrus.New()
	discard.SetOutput(nowhere{})
	return &Client{Servers: servers, Threshold: threshold, Logger: discard}, nil
}

// Encrypt seals plaintext under a fresh data-encryption key and escrows the
// key across the server set: the DEK is Shamir-split and each share is
// wrapped by one server, bound to the document identity.
//
// Encryption carries no authorization check; access control is enforced at
// key release.
func (c *Client) Encrypt(ctx context.Context, docID identity.Identity, plaintext []byte) ([]byte, error) {
	if _, err := identity.Decode(docID); err != nil {
		return nil, err
	}

	dek, err := newDEK()
	if err != nil {
		return nil, err
	}
	key, err := dekKey(dek)
	if err != nil {
		return nil, err
	}
	payload, err := sealPayload(key, plaintext, docID)
	if err != nil {
		return nil, err
	}
	shares, err := splitDEK(dek, c.Threshold, len(c.Servers))
	if err != nil {
		return nil, err
	}

	wrapped := make([]wrappedShare, 0, len(c.Servers))
	var lastErr error
	for i, srv := range c.Servers {
		blob, err := c.wrapOne(ctx, srv, docID, shares[i])
		if err != nil {
			lastErr = err
			c.Logger.WithField("server", srv.Name).WithError(err).Warn("key server wrap failed")
			continue
		}
		wrapped = append(wrapped, wrappedShare{Server: srv.Name, Blob: blob})
	}
	if len(wrapped) < c.Threshold {
		return nil, seal.Wrap(seal.KindQuorum, "SEAL-KS-044",
			fmt.Sprintf("only %d of %d key servers wrapped a share (threshold %d)", len(wrapped), len(c.Servers), c.Threshold),
			lastErr)
	}
	return encodeArtifact(payload, wrapped), nil
}

// FetchAndDecrypt asks the escrow servers to release their shares and
// reassembles the DEK once Threshold of them agree.
//
// Authorization failures abort immediately: servers evaluate the same
// ledger predicate, so one honest rejection will not be outvoted.
func (c *Client) FetchAndDecrypt(ctx context.Context, cred *session.Credential, proof *policy.ApprovalProof, docID identity.Identity, artifact []byte) ([]byte, error) {
	if cred == nil || proof == nil {
		return nil, seal.New(seal.KindAuth, "SEAL-KS-045", "session credential and approval proof are required")
	}
	payload, wrapped, err := parseArtifact(artifact)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]KeyServer, len(c.Servers))
	for _, srv := range c.Servers {
		byName[srv.Name] = srv.Server
	}

	shares := make([][]byte, 0, c.Threshold)
	var lastErr error
	for _, w := range wrapped {
		if len(shares) == c.Threshold {
			break
		}
		srv, ok := byName[w.Server]
		if !ok {
			continue
		}
		share, err := c.unwrapOne(ctx, NamedServer{Name: w.Server, Server: srv}, UnwrapRequest{
			Credential: cred,
			Proof:      proof,
			Identity:   docID,
			Wrapped:    w.Blob,
		})
		if err != nil {
			if fatalRelease(err) {
				return nil, err
			}
			lastErr = err
			c.Logger.WithField("server", w.Server).WithError(err).Warn("key server release failed")
			continue
		}
		shares = append(shares, share)
	}
	if len(shares) < c.Threshold {
		return nil, seal.Wrap(seal.KindQuorum, "SEAL-KS-046",
			fmt.Sprintf("only %d of %d key servers released a share (threshold %d)", len(shares), len(wrapped), c.Threshold),
			lastErr)
	}

	dek, err := recoverDEK(shares, c.Threshold)
	if err != nil {
		return nil, err
	}
	key, err := dekKey(dek)
	if err != nil {
		return nil, err
	}
	return openPayload(key, payload, docID)
}

func (c *Client) wrapOne(ctx context.Context, srv NamedServer, docID identity.Identity, share []byte) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return srv.Server.WrapShare(ctx, docID, share)
}

func (c *Client) unwrapOne(ctx context.Context, srv NamedServer, req UnwrapRequest) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return srv.Server.UnwrapShare(ctx, req)
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// fatalRelease reports errors that further servers cannot repair.
func fatalRelease(err error) bool {
	return seal.IsKind(err, seal.KindAuth) ||
		seal.IsKind(err, seal.KindNotAuthorized) ||
		seal.IsKind(err, seal.KindExpiredCredential) ||
		seal.IsKind(err, seal.KindNotFound)
}

type nowhere struct{}

func (nowhere) Write(p []byte) (int, error) { return len(p), nil }
