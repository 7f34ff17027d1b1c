package signer

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/chain/claimmsg"
)

func testSigner(t *testing.T, now time.Time) (*Signer, solana.PrivateKey) {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	s, err := New(priv.String(), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s, priv
}

func TestNewFromEnvMissing(t *testing.T) {
	t.Setenv(KeypairEnvKey, "")
	if _, err := NewFromEnv(); !errors.Is(err, ErrKeypairMissing) {
		t.Fatalf("got %v, want ErrKeypairMissing", err)
	}
}

func TestNewInvalidSecret(t *testing.T) {
	t.Parallel()
	if _, err := New("not-base58-!!!"); !errors.Is(err, ErrKeypairInvalid) {
		t.Fatalf("got %v, want ErrKeypairInvalid", err)
	}
	// A 32-byte value is a valid base58 payload but not a 64-byte secret key.
	short := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	if _, err := New(short.String()); !errors.Is(err, ErrKeypairInvalid) {
		t.Fatalf("short secret: got %v, want ErrKeypairInvalid", err)
	}
}

func TestIssueSignsCanonicalMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	s, priv := testSigner(t, now)

	var dropID [32]byte
	dropID[5] = 0x42
	claimer := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	tok, err := s.Issue(dropID, claimer, 650)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if tok.Timestamp != now.Unix() {
		t.Fatalf("timestamp = %d, want %d", tok.Timestamp, now.Unix())
	}
	if tok.FairscaleScore != 650 {
		t.Fatalf("score = %d, want 650", tok.FairscaleScore)
	}
	if tok.BackendPubkey != priv.PublicKey().String() {
		t.Fatalf("backend pubkey = %s", tok.BackendPubkey)
	}

	sig, err := solana.SignatureFromBase58(tok.Signature)
	if err != nil {
		t.Fatalf("signature not base58: %v", err)
	}
	msg := claimmsg.BuildMessage(dropID, claimer, tok.Timestamp, tok.FairscaleScore)
	if !ed25519.Verify(ed25519.PublicKey(priv.PublicKey().Bytes()), msg, sig[:]) {
		t.Fatalf("issued signature does not verify against the canonical message")
	}
}

func TestIssueNotIdempotent(t *testing.T) {
	t.Parallel()

	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	s, err := New(priv.String(), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	var dropID [32]byte
	claimer := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	a, err := s.Issue(dropID, claimer, 100)
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, err := s.Issue(dropID, claimer, 100)
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}

	if a.Timestamp == b.Timestamp || a.Signature == b.Signature {
		t.Fatalf("expected a fresh timestamp and signature per issuance")
	}
}
