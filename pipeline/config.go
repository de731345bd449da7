package pipeline

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/keyserver"
	"xsign.co/sealvault/ledger"
	"xsign.co/sealvault/seal"
	"xsign.co/sealvault/session"
)

// Config carries every collaborator an orchestrator needs. Components never
// read the environment; the caller resolves all settings up front.
type Config struct {
	// Ledger is the policy chain the orchestrators submit to.
	Ledger ledger.Client

	// PolicyPackage is the on-chain package holding the allowlist module.
	PolicyPackage ledger.ObjectID

	// KeyServers and Threshold configure the key escrow quorum.
	KeyServers []keyserver.NamedServer
	Threshold  int

	// Blobs stores encrypted artifacts.
	Blobs blob.Store

	// AllowPlaintextFallback permits encryption to degrade to a fallback
	// result when the key-server quorum is unavailable. Off by default:
	// unavailability is then a hard error and no document leaves the
	// pipeline unencrypted.
	AllowPlaintextFallback bool

	// SessionTTLMinutes is the credential lifetime handed to bootstrap
	// sessions. Zero means session.DefaultTTLMinutes.
	SessionTTLMinutes int

	// CallTimeout bounds each ledger and key-server call when non-zero.
	CallTimeout time.Duration

	// MaxAttempts bounds retries of a failed retryable step, first try
	// included. Zero means 3.
	MaxAttempts int

	// RetryBase is the backoff unit between attempts. Zero means 200ms.
	RetryBase time.Duration

	// Logger receives structured step logging. Nil means discard.
	Logger logrus.FieldLogger
}

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
)

// Validate reports the first configuration problem, if any.
func (c *Config) Validate() error {
	if c.Ledger == nil {
		return seal.New(seal.KindConfig, "SEAL-PIPE-001", "ledger client is required")
	}
	if c.PolicyPackage == "" {
		return seal.New(seal.KindConfig, "SEAL-PIPE-002", "policy package id is required")
	}
	if len(c.KeyServers) == 0 {
		return seal.New(seal.KindConfig, "SEAL-PIPE-003", "at least one key server is required")
	}
	if c.Threshold < 1 || c.Threshold > len(c.KeyServers) {
		return seal.New(seal.KindConfig, "SEAL-PIPE-004", "threshold out of range for key server set")
	}
	if c.Blobs == nil {
		return seal.New(seal.KindConfig, "SEAL-PIPE-005", "blob store is required")
	}
	if c.MaxAttempts < 0 {
		return seal.New(seal.KindConfig, "SEAL-PIPE-006", "max attempts must not be negative")
	}
	return nil
}

func (c *Config) maxAttempts() int {
	if c.MaxAttempts == 0 {
		return defaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Config) retryBase() time.Duration {
	if c.RetryBase <= 0 {
		return defaultRetryBase
	}
	return c.RetryBase
}

func (c *Config) sessionTTL() int {
	if c.SessionTTLMinutes <= 0 {
		return session.DefaultTTLMinutes
	}
	return c.SessionTTLMinutes
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
