package keyserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/session"
)

// MasterSecretLen is the required length of a server's master secret.
const MasterSecretLen = 32

// Server is one key server: it holds a master secret and releases wrapped
// key shares only to callers whose approval the ledger confirms.
//
// The server never trusts the caller's proof contents for authorization; it
// re-evaluates the policy predicate against its own ledger view on every
// unwrap.
type Server struct {
	master  []byte
	ledger  ledger.Client
	pkg     ledger.ObjectID

	// RequireSignedSession refuses bootstrap credentials minted directly
	// from a private key. Off by default so local tooling and tests can use
	// the lower-trust path.
	RequireSignedSession bool

	// Now is the server clock, swappable in tests.
	Now func() time.Time

	// sessions remembers signature-verified credentials until they expire
	// so repeated unwraps within one session skip the signature check.
	// Approval is still re-evaluated on every request.
	sessions *cache.Cache
}

var _ KeyServer = (*Server)(nil)

// NewServer builds a key server from its master secret, ledger view, and
// the policy package id it evaluates approvals against.
func NewServer(master []byte, client ledger.Client, packageID ledger.ObjectID) (*Server, error) {
	if len(master) != MasterSecretLen {
		return nil, seal.New(seal.KindConfig, "SEAL-KS-020", "master secret must be 32 bytes")
	}
	if client == nil {
		return nil, seal.New(seal.KindConfig, "SEAL-KS-021", "nil ledger client")
	}
	if packageID == "" {
		return nil, seal.New(seal.KindConfig, "SEAL-KS-022", "policy package id not configured")
	}
	return &Server{
		master:   append([]byte(nil), master...),
		ledger:   client,
		pkg:      packageID,
		Now:      time.Now,
		sessions: cache.New(cache.NoExpiration, 30*time.Second),
	}, nil
}

// NewRandomServer builds a server with a freshly sampled master secret.
func NewRandomServer(client ledger.Client, packageID ledger.ObjectID) (*Server, error) {
	master := make([]byte, MasterSecretLen)
	if _, err := rand.Read(master); err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-023", "master secret sampling failed", err)
	}
	return NewServer(master, client, packageID)
}

// wrapKey derives the identity-bound share-wrapping key.
func (s *Server) wrapKey(docID identity.Identity) []byte {
	mac := hmac.New(sha3.New256, s.master)
	_, _ = mac.Write([]byte("sealvault-wrap-v1"))
	_, _ = mac.Write([]byte{0})
	_, _ = mac.Write(docID)
	return mac.Sum(nil)
}

func (s *Server) WrapShare(ctx context.Context, docID identity.Identity, share []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := identity.Decode(docID); err != nil {
		return nil, err
	}
	if len(share) == 0 {
		return nil, seal.New(seal.KindInput, "SEAL-KS-024", "empty share")
	}

	aead, err := chacha20poly1305.NewX(s.wrapKey(docID))
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-010", "aead construction failed", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-011", "nonce sampling failed", err)
	}
	return aead.Seal(nonce, nonce, share, docID), nil
}

func (s *Server) UnwrapShare(ctx context.Context, req UnwrapRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cred, proof := req.Credential, req.Proof
	if proof == nil {
		return nil, seal.New(seal.KindAuth, "SEAL-KS-030", "missing approval proof")
	}
	if err := s.verifySession(cred, proof.PolicyID); err != nil {
		return nil, err
	}

	// The proof must be bound to the same caller and document the key
	// release is for.
	if cred.Address != proof.Address {
		return nil, seal.New(seal.KindAuth, "SEAL-KS-031", "proof not bound to session address")
	}
	if !bytes.Equal(proof.Identity, req.Identity) {
		return nil, seal.New(seal.KindAuth, "SEAL-KS-032", "proof not bound to document identity")
	}

	// Independent re-evaluation of the access predicate. This is the
	// enforcement point a client cannot bypass.
	res, err := s.ledger.DryRun(ctx, proof.Address, policy.ApprovalCall(s.pkg, proof.PolicyID, req.Identity))
	if err != nil {
		if ledger.IsObjectNotFound(err) {
			return nil, seal.Wrap(seal.KindNotFound, "SEAL-KS-033", "policy not found", err)
		}
		return nil, seal.Wrap(seal.KindChain, "SEAL-KS-034", "approval re-evaluation failed", err)
	}
	if !res.Status.Success {
		return nil, seal.New(seal.KindNotAuthorized, "SEAL-KS-035", "not authorized")
	}

	aead, err := chacha20poly1305.NewX(s.wrapKey(req.Identity))
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-010", "aead construction failed", err)
	}
	if len(req.Wrapped) < aead.NonceSize() {
		return nil, seal.New(seal.KindInput, "SEAL-KS-036", "wrapped share too short")
	}
	nonce, sealed := req.Wrapped[:aead.NonceSize()], req.Wrapped[aead.NonceSize():]
	share, err := aead.Open(nil, nonce, sealed, req.Identity)
	if err != nil {
		return nil, seal.Wrap(seal.KindCrypto, "SEAL-KS-037", "share authentication failed", err)
	}
	return share, nil
}

func (s *Server) verifySession(cred *session.Credential, policyID ledger.ObjectID) error {
	if cred == nil {
		return seal.New(seal.KindAuth, "SEAL-KS-038", "missing session credential")
	}
	if s.RequireSignedSession && cred.Bootstrap {
		return seal.New(seal.KindAuth, "SEAL-KS-039", "bootstrap credentials refused")
	}
	now := s.Now()

	// The cache key commits to every field the full check verifies, so a
	// credential reusing cached signature bytes under altered address, key,
	// policy, or window fields misses the cache and is verified in full.
	key := sessionKey(cred)
	if _, seen := s.sessions.Get(key); seen {
		// Signature already verified for this session; expiry still applies.
		if now.After(cred.ExpiresAt()) {
			return seal.New(seal.KindExpiredCredential, "SEAL-SES-008", "credential expired")
		}
		if cred.PolicyID != policyID {
			return seal.New(seal.KindAuth, "SEAL-SES-006", "credential scoped to a different policy")
		}
		return nil
	}
	if err := cred.Verify(policyID, now); err != nil {
		return err
	}
	if ttl := time.Until(cred.ExpiresAt()); ttl > 0 {
		s.sessions.Set(key, struct{}{}, ttl)
	}
	return nil
}

func sessionKey(cred *session.Credential) string {
	h := sha3.New256()
	_, _ = h.Write(session.Challenge(cred.Address, cred.PolicyID, cred.IssuedAt, cred.TTLMinutes))
	_, _ = h.Write(cred.PublicKey)
	_, _ = h.Write(cred.Signature)
	return hex.EncodeToString(h.Sum(nil))
}
