// Package siws implements sign-in-with-Solana message building and
// server-side verification.
//
// A wallet proves control of its key by producing a detached ed25519
// signature over a canonical text message. Freshness is judged server-side
// only: clients never decide expiry themselves, they react to the server
// reporting it.
package siws

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Policy bounds the accepted age of a signed message.
type Policy struct {
	// MaxMessageAge is the maximum accepted distance between issuedAt and now.
	MaxMessageAge time.Duration
	// MaxClockSkew tolerates issuedAt slightly in the future.
	MaxClockSkew time.Duration
}

// DefaultPolicy: 7-day sessions, 60 seconds of forward clock skew.
func DefaultPolicy() Policy {
	return Policy{
		MaxMessageAge: 7 * 24 * time.Hour,
		MaxClockSkew:  60 * time.Second,
	}
}

// BuildMessage renders the canonical sign-in text. The wallet signs the UTF-8
// bytes of exactly this string; issuedAt is appended only when present.
func BuildMessage(domain, walletAddress, nonce, issuedAt string) string {
	msg := fmt.Sprintf("%s wants you to sign in with your Solana account:\n%s\n\nNonce: %s",
		domain, walletAddress, nonce)
	if issuedAt != "" {
		msg += "\nIssued At: " + issuedAt
	}
	return msg
}

// Input is one sign-in proof as submitted by a client.
type Input struct {
	WalletAddress string
	Signature     string // base64 or base64url, detached ed25519
	Nonce         string
	IssuedAt      string // RFC3339; empty means the caller's policy allows ageless proofs
}

// Verifier checks sign-in proofs for one domain.
type Verifier struct {
	domain string
	policy Policy
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the verification clock (tests).
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier constructs a Verifier for the given domain.
func NewVerifier(domain string, policy Policy, opts ...Option) *Verifier {
	v := &Verifier{domain: domain, policy: policy, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Verify checks a sign-in proof and returns the wallet key it authenticates.
//
// Error identity matters to callers: ErrExpired must be distinguishable from
// ErrInvalidSignature so clients know to re-sign rather than give up.
func (v *Verifier) Verify(in Input) (solana.PublicKey, error) {
	wallet, err := solana.PublicKeyFromBase58(strings.TrimSpace(in.WalletAddress))
	if err != nil {
		return solana.PublicKey{}, ErrInvalidAddress
	}

	if in.IssuedAt != "" {
		issued, err := time.Parse(time.RFC3339, in.IssuedAt)
		if err != nil {
			return solana.PublicKey{}, ErrInvalidIssuedAt
		}
		now := v.now()
		if now.Sub(issued) > v.policy.MaxMessageAge {
			return solana.PublicKey{}, ErrExpired
		}
		if issued.Sub(now) > v.policy.MaxClockSkew {
			return solana.PublicKey{}, ErrInvalidIssuedAt
		}
	}

	sig, err := DecodeSignature(in.Signature)
	if err != nil {
		return solana.PublicKey{}, err
	}

	msg := BuildMessage(v.domain, in.WalletAddress, in.Nonce, in.IssuedAt)
	if !ed25519.Verify(ed25519.PublicKey(wallet.Bytes()), []byte(msg), sig) {
		return solana.PublicKey{}, ErrInvalidSignature
	}
	return wallet, nil
}

// DecodeSignature accepts a detached signature in base64 or base64url form,
// restoring stripped padding. Wallets differ on which alphabet they emit.
func DecodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidSignatureFormat
	}

	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidSignatureFormat
	}
	if len(raw) != ed25519.SignatureSize {
		return nil, ErrInvalidSignatureFormat
	}
	return raw, nil
}
