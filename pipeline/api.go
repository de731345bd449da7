package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/session"
	"xsign.co/sealvault/wallet"
)

// timeNow is swapped in tests that exercise credential expiry.
var timeNow = time.Now

// EncryptRequest is the transport-level encryption request.
type EncryptRequest struct {
	ContractID      string   `json:"contractId"`
	DocumentContent string   `json:"documentContent"`
	IsBase64        bool     `json:"isBase64"`
	SignerAddresses []string `json:"signerAddresses"`
}

// EncryptResponse reports where the document landed.
type EncryptResponse struct {
	Encrypted      bool   `json:"encrypted"`
	FallbackReason string `json:"fallbackReason,omitempty"`
	BlobID         string `json:"blobId,omitempty"`
	PolicyID       string `json:"policyId"`
	CapID          string `json:"capId"`
	DocumentID     string `json:"documentId"`
}

// Handle services one transport-level encryption request on behalf of admin.
func (e *Encryptor) Handle(ctx context.Context, admin *wallet.Keypair, req EncryptRequest) (*EncryptResponse, error) {
	document := []byte(req.DocumentContent)
	if req.IsBase64 {
		decoded, err := base64.StdEncoding.DecodeString(req.DocumentContent)
		if err != nil {
			return nil, seal.Wrap(seal.KindInput, "SEAL-PIPE-030", "document content is not valid base64", err)
		}
		document = decoded
	}
	parties := make([]wallet.Address, 0, len(req.SignerAddresses))
	for _, s := range req.SignerAddresses {
		a, err := wallet.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		parties = append(parties, a)
	}

	res, err := e.EncryptForParties(ctx, admin, req.ContractID, document, parties)
	if err != nil {
		return nil, err
	}
	return &EncryptResponse{
		Encrypted:      res.Encrypted,
		FallbackReason: res.FallbackReason,
		BlobID:         res.BlobID,
		PolicyID:       string(res.PolicyID),
		CapID:          string(res.CapID),
		DocumentID:     res.DocumentID.Hex(),
	}, nil
}

// DecryptRequest is the transport-level decryption request.
//
// The caller authenticates one of two ways: a signature over the session
// challenge (PublicKey, Signature, IssuedAt, TTLMinutes), or a raw private
// key seed for bootstrap use. Supplying both is rejected.
type DecryptRequest struct {
	BlobID      string `json:"blobId"`
	UserAddress string `json:"userAddress"`
	PolicyID    string `json:"policyId"`
	DocumentID  string `json:"documentId"`

	PublicKey  string    `json:"publicKey,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	IssuedAt   time.Time `json:"issuedAt,omitempty"`
	TTLMinutes int       `json:"ttlMinutes,omitempty"`

	UserPrivateKey string `json:"userPrivateKey,omitempty"`
}

// DecryptResponse carries the released document, base64 encoded.
type DecryptResponse struct {
	Decrypted         bool   `json:"decrypted"`
	DecryptedDocument string `json:"decryptedDocument"`
}

// Handle services one transport-level decryption request.
func (d *Decryptor) Handle(ctx context.Context, req DecryptRequest) (*DecryptResponse, error) {
	policyID := ledger.ObjectID(strings.TrimSpace(req.PolicyID))
	docID, err := identity.ParseHex(req.DocumentID)
	if err != nil {
		return nil, err
	}
	cred, err := d.credentialFrom(req, policyID)
	if err != nil {
		return nil, err
	}

	plaintext, err := d.Decrypt(ctx, cred, policyID, docID, req.BlobID)
	if err != nil {
		return nil, err
	}
	return &DecryptResponse{
		Decrypted:         true,
		DecryptedDocument: base64.StdEncoding.EncodeToString(plaintext),
	}, nil
}

func (d *Decryptor) credentialFrom(req DecryptRequest, policyID ledger.ObjectID) (*session.Credential, error) {
	hasSig := req.Signature != ""
	hasKey := req.UserPrivateKey != ""
	switch {
	case hasSig && hasKey:
		return nil, seal.New(seal.KindInput, "SEAL-PIPE-031", "supply a signature or a private key, not both")
	case hasSig:
		addr, err := wallet.ParseAddress(req.UserAddress)
		if err != nil {
			return nil, err
		}
		pub, err := decodeKeyMaterial(req.PublicKey)
		if err != nil {
			return nil, seal.Wrap(seal.KindInput, "SEAL-PIPE-032", "invalid public key encoding", err)
		}
		sig, err := decodeKeyMaterial(req.Signature)
		if err != nil {
			return nil, seal.Wrap(seal.KindInput, "SEAL-PIPE-033", "invalid signature encoding", err)
		}
		ttl := req.TTLMinutes
		if ttl <= 0 {
			ttl = d.cfg.sessionTTL()
		}
		return session.FromSignature(addr, pub, policyID, ttl, req.IssuedAt, sig)
	case hasKey:
		seed, err := wallet.ParseSeedHex(req.UserPrivateKey)
		if err != nil {
			return nil, err
		}
		kp, err := wallet.FromSeed(seed)
		if err != nil {
			return nil, err
		}
		// The request's address must belong to the supplied key; a mismatch
		// is a caller bug, not an access question.
		if req.UserAddress != "" {
			addr, err := wallet.ParseAddress(req.UserAddress)
			if err != nil {
				return nil, err
			}
			if addr != kp.Address() {
				return nil, seal.New(seal.KindAuth, "SEAL-PIPE-034", "user address does not match the supplied key")
			}
		}
		return session.FromPrivateKey(kp, policyID, d.cfg.sessionTTL())
	default:
		return nil, seal.New(seal.KindAuth, "SEAL-PIPE-035", "request carries no authentication material")
	}
}

// decodeKeyMaterial accepts hex (0x-prefixed or bare) or std base64.
func decodeKeyMaterial(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if h := strings.TrimPrefix(s, "0x"); h != s {
		return hex.DecodeString(h)
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
