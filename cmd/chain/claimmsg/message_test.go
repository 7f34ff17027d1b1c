package claimmsg

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestBuildMessageLayout(t *testing.T) {
	t.Parallel()

	var dropID [32]byte
	for i := range dropID {
		dropID[i] = byte(i)
	}
	claimer := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	msg := BuildMessage(dropID, claimer, 1_767_225_600, 750)

	if len(msg) != MessageLen {
		t.Fatalf("message length = %d, want %d", len(msg), MessageLen)
	}
	if MessageLen != len(MessagePrefix)+74 {
		t.Fatalf("MessageLen = %d, want prefix+74", MessageLen)
	}

	p := len(MessagePrefix)
	if string(msg[:p]) != MessagePrefix {
		t.Fatalf("prefix = %q", msg[:p])
	}
	if !bytes.Equal(msg[p:p+32], dropID[:]) {
		t.Fatalf("drop id not at offset %d", p)
	}
	if !bytes.Equal(msg[p+32:p+64], claimer.Bytes()) {
		t.Fatalf("claimer not at offset %d", p+32)
	}
	if got := int64(binary.LittleEndian.Uint64(msg[p+64:])); got != 1_767_225_600 {
		t.Fatalf("timestamp = %d", got)
	}
	if got := binary.LittleEndian.Uint16(msg[p+72:]); got != 750 {
		t.Fatalf("score = %d", got)
	}
}

func TestMessageSignatureTamperDetection(t *testing.T) {
	t.Parallel()

	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	var dropID [32]byte
	dropID[0] = 0xAA
	claimer := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	const (
		timestamp = int64(1_767_225_600)
		score     = uint16(640)
	)

	msg := BuildMessage(dropID, claimer, timestamp, score)
	sig, err := priv.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	pub := ed25519.PublicKey(priv.PublicKey().Bytes())
	if !ed25519.Verify(pub, msg, sig[:]) {
		t.Fatalf("signature does not verify against the original message")
	}

	altered := [][]byte{}

	tampered := BuildMessage(dropID, claimer, timestamp+1, score)
	altered = append(altered, tampered)

	tampered = BuildMessage(dropID, claimer, timestamp, score+1)
	altered = append(altered, tampered)

	var otherID [32]byte
	copy(otherID[:], dropID[:])
	otherID[31] ^= 1
	altered = append(altered, BuildMessage(otherID, claimer, timestamp, score))

	other := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	altered = append(altered, BuildMessage(dropID, other, timestamp, score))

	for i, m := range altered {
		if ed25519.Verify(pub, m, sig[:]) {
			t.Fatalf("tampered message %d still verifies", i)
		}
	}
}

func TestClaimInstructionData(t *testing.T) {
	t.Parallel()

	data := ClaimInstructionData(-2, 500)
	if len(data) != 18 {
		t.Fatalf("data length = %d, want 18", len(data))
	}
	if !bytes.Equal(data[:8], DiscClaimDrop[:]) {
		t.Fatalf("discriminator = %v", data[:8])
	}
	if got := int64(binary.LittleEndian.Uint64(data[8:16])); got != -2 {
		t.Fatalf("timestamp = %d, want -2", got)
	}
	if got := binary.LittleEndian.Uint16(data[16:]); got != 500 {
		t.Fatalf("score = %d, want 500", got)
	}
}

func TestEd25519VerifyInstructionLayout(t *testing.T) {
	t.Parallel()

	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	var dropID [32]byte
	msg := BuildMessage(dropID, priv.PublicKey(), 1, 2)
	sig, err := priv.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ix := NewEd25519VerifyInstruction(priv.PublicKey(), msg, sig[:])
	if !ix.ProgramID().Equals(Ed25519ProgramID) {
		t.Fatalf("program id = %s", ix.ProgramID())
	}

	data, err := ix.Data()
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if data[0] != 1 {
		t.Fatalf("signature count = %d", data[0])
	}
	if !bytes.Equal(data[16:48], priv.PublicKey().Bytes()) {
		t.Fatalf("pubkey not at offset 16")
	}
	if !bytes.Equal(data[48:112], sig[:]) {
		t.Fatalf("signature not at offset 48")
	}
	if !bytes.Equal(data[112:], msg) {
		t.Fatalf("message not at offset 112")
	}
	if got := binary.LittleEndian.Uint16(data[12:14]); int(got) != len(msg) {
		t.Fatalf("message size = %d, want %d", got, len(msg))
	}
}
