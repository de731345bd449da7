package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"xsign.co/sealvault/identity"
	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/policy"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/wallet"
)

// Encryptor drives the provision-encrypt-upload-publish sequence.
type Encryptor struct {
	cfg   Config
	store *policy.Store
	keys  *keyserver.Client
	log   logrus.FieldLogger
}

// NewEncryptor validates cfg and builds the orchestrator.
func NewEncryptor(cfg Config) (*Encryptor, error) {
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
	return &Encryptor{cfg: cfg, store: store, keys: keys, log: log}, nil
}

// EncryptForParties provisions an access policy for parties, encrypts
// document under it, uploads the artifact and publishes the blob binding.
//
// Each step retries independently on transient failures, so a failed
// add-parties call never recreates the policy it follows. Authorization and
// input failures are final and surface unchanged.
//
// With AllowPlaintextFallback set, exhausting retries on a transient chain
// or quorum failure anywhere before upload yields the explicit fallback
// result instead of an error. The result carries whichever policy ids were
// provisioned before the failure; nothing is uploaded.
func (e *Encryptor) EncryptForParties(ctx context.Context, admin *wallet.Keypair, contractID string, document []byte, parties []wallet.Address) (*Result, error) {
	if admin == nil {
		return nil, seal.New(seal.KindInput, "SEAL-PIPE-010", "admin keypair is required")
	}
	if contractID == "" {
		return nil, seal.New(seal.KindInput, "SEAL-PIPE-011", "contract id is required")
	}
	if len(parties) == 0 {
		return nil, seal.New(seal.KindInput, "SEAL-PIPE-012", "at least one authorized party is required")
	}

	log := e.log.WithField("contract", contractID)

	var handle *policy.Handle
	err := e.retry(ctx, log, "create_policy", func(ctx context.Context) error {
		h, err := e.store.Create(ctx, admin, contractID)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		return e.degrade(log, &Result{}, "create_policy", err)
	}
	log = log.WithField("policy", string(handle.PolicyID))

	err = e.retry(ctx, log, "add_parties", func(ctx context.Context) error {
		return e.store.AddParties(ctx, handle, admin, parties)
	})
	if err != nil {
		return e.degrade(log, &Result{PolicyID: handle.PolicyID, CapID: handle.CapID}, "add_parties", err)
	}

	pid, err := policy.IDBytes(handle.PolicyID)
	if err != nil {
		return nil, err
	}
	docID, err := identity.Derive(pid, [][]byte{[]byte(contractID)}, parties)
	if err != nil {
		return nil, err
	}

	res := &Result{
		PolicyID:   handle.PolicyID,
		CapID:      handle.CapID,
		DocumentID: docID,
	}

	var artifact []byte
	err = e.retry(ctx, log, "encrypt", func(ctx context.Context) error {
		a, err := e.keys.Encrypt(ctx, docID, document)
		if err != nil {
			return err
		}
		artifact = a
		return nil
	})
	if err != nil {
		return e.degrade(log, res, "encrypt", err)
	}

	id, err := e.cfg.Blobs.Put(artifact)
	if err != nil {
		return nil, seal.Wrap(seal.KindChain, "SEAL-PIPE-013", "artifact upload failed", err)
	}
	res.BlobID = id.String()

	err = e.retry(ctx, log, "publish", func(ctx context.Context) error {
		return e.store.Publish(ctx, handle, admin, res.BlobID, docID)
	})
	if err != nil {
		return nil, err
	}

	res.Encrypted = true
	log.WithFields(logrus.Fields{
		"blob": res.BlobID,
		"doc":  docID.Hex(),
	}).Info("document encrypted and published")
	return res, nil
}

// degrade converts a retry-exhausted transient failure into the fallback
// result when the caller opted in. res carries whatever was provisioned
// before step failed. Final failures (auth, input) pass through as errors.
func (e *Encryptor) degrade(log logrus.FieldLogger, res *Result, step string, err error) (*Result, error) {
	if !e.cfg.AllowPlaintextFallback || !seal.Retryable(err) {
		return nil, err
	}
	log.WithFields(logrus.Fields{"step": step}).WithError(err).Warn("degrading to plaintext fallback")
	res.FallbackReason = err.Error()
	return res, nil
}

// retry runs fn up to MaxAttempts times, backing off linearly between
// attempts. Only transient kinds retry; everything else is final.
func (e *Encryptor) retry(ctx context.Context, log logrus.FieldLogger, step string, fn func(context.Context) error) error {
	return retrySteps(ctx, log, e.cfg.maxAttempts(), e.cfg.retryBase(), step, fn)
}

func retrySteps(ctx context.Context, log logrus.FieldLogger, attempts int, base time.Duration, step string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !seal.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		log.WithFields(logrus.Fields{
			"step":    step,
			"attempt": attempt,
		}).WithError(err).Warn("step failed, retrying")
		select {
		case <-ctx.Done():
			return seal.Wrap(seal.KindChain, "SEAL-PIPE-014", "canceled while retrying "+step, ctx.Err())
		case <-time.After(time.Duration(attempt) * base):
		}
	}
	return err
}
