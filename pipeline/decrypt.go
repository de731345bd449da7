package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/blobid"
	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/session"
)

// Decryptor drives the authenticate-approve-release sequence.
//
// Decryption never degrades: a caller either proves access and receives the
// plaintext, or gets an error naming why.
type Decryptor struct {
	cfg   Config
	store *policy.Store
	keys  *keyserver.Client
	log   logrus.FieldLogger
}

// NewDecryptor validates cfg and builds the orchestrator.
func NewDecryptor(cfg Config) (*Decryptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := policy.New(cfg.Ledger, cfg.PolicyPackage)
	if err != nil {
		return nil, err
	}
	store.Timeout = cfg.CallTimeout
	keys, err := keyserver.NewClient(cfg.KeyServers, cfg.Threshold)
	if err != nil {
		return nil, err
	}
	keys.Timeout = cfg.CallTimeout
	log := cfg.logger()
	keys.Logger = log
	return &Decryptor{cfg: cfg, store: store, keys: keys, log: log}, nil
}

// Decrypt fetches the artifact addressed by blobID and releases the
// plaintext for the credential holder.
//
// The credential is checked locally first so an expired session fails fast,
// but the authoritative checks run on the key servers.
func (d *Decryptor) Decrypt(ctx context.Context, cred *session.Credential, policyID ledger.ObjectID, docID identity.Identity, blobID string) ([]byte, error) {
	if cred == nil {
		return nil, seal.New(seal.KindAuth, "SEAL-PIPE-020", "session credential is required")
	}
	if err := cred.Verify(policyID, timeNow()); err != nil {
		return nil, err
	}

	log := d.log.WithFields(logrus.Fields{
		"policy": string(policyID),
		"user":   cred.Address.String(),
	})

	var proof *policy.ApprovalProof
	err := retrySteps(ctx, log, d.cfg.maxAttempts(), d.cfg.retryBase(), "approval_proof", func(ctx context.Context) error {
		p, err := d.store.BuildApprovalProof(ctx, policyID, docID, cred.Address)
		if err != nil {
			return err
		}
		proof = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	id, err := blobid.Parse(blobID)
	if err != nil {
		return nil, seal.Wrap(seal.KindInput, "SEAL-PIPE-021", "invalid blob id", err)
	}
	artifact, err := d.cfg.Blobs.Get(id)
	if err != nil {
		if blob.IsNotFound(err) {
			return nil, seal.Wrap(seal.KindNotFound, "SEAL-PIPE-022", "artifact not found", err)
		}
		return nil, seal.Wrap(seal.KindChain, "SEAL-PIPE-023", "artifact download failed", err)
	}

	var plaintext []byte
	err = retrySteps(ctx, log, d.cfg.maxAttempts(), d.cfg.retryBase(), "key_release", func(ctx context.Context) error {
		p, err := d.keys.FetchAndDecrypt(ctx, cred, proof, docID, artifact)
		if err != nil {
			return err
		}
		plaintext = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithField("blob", blobID).Info("document decrypted")
	return plaintext, nil
}
