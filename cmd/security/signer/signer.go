package signer

import (
	"crypto/ed25519"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/chain/claimmsg"
)

const (
	// KeypairEnvKey is the env var holding the base58 backend secret key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	KeypairEnvKey = "FAIRDROP_BACKEND_KEYPAIR"
)

// ClaimToken is the issued capability. Never persisted; a fresh request gets a
// fresh timestamp and therefore a fresh signature.
type ClaimToken struct {
	Timestamp      int64  `json:"timestamp"`
	FairscaleScore uint16 `json:"fairscaleScore"`
	Signature      string `json:"signature"`
	BackendPubkey  string `json:"backendPubkey"`
}

// Signer holds the long-lived backend keypair.
type Signer struct {
	key solana.PrivateKey
	now func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the issuance clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFromEnv loads the backend keypair from KeypairEnvKey.
func NewFromEnv(opts ...Option) (*Signer, error) {
	raw := strings.TrimSpace(os.Getenv(KeypairEnvKey))
	if raw == "" {
		return nil, ErrKeypairMissing
	}
	return New(raw, opts...)
}

// New constructs a Signer from a base58 64-byte ed25519 secret key.
func New(secretBase58 string, opts ...Option) (*Signer, error) {
	key, err := solana.PrivateKeyFromBase58(secretBase58)
	if err != nil {
		return nil, ErrKeypairInvalid
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, ErrKeypairInvalid
	}

	s := &Signer{key: key, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// PublicKey returns the issuer's public key; the program pins this value.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Issue stamps the current unix time, signs the canonical claim message, and
// returns the capability token. No state is mutated.
func (s *Signer) Issue(dropID [32]byte, claimer solana.PublicKey, fairscaleScore uint16) (ClaimToken, error) {
	timestamp := s.now().Unix()

	msg := claimmsg.BuildMessage(dropID, claimer, timestamp, fairscaleScore)
	sig, err := s.key.Sign(msg)
	if err != nil {
		return ClaimToken{}, err
	}

	return ClaimToken{
		Timestamp:      timestamp,
		FairscaleScore: fairscaleScore,
		Signature:      sig.String(),
		BackendPubkey:  s.key.PublicKey().String(),
	}, nil
}
