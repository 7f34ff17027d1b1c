// Package account encodes and decodes the FairDrop program's account records.
//
// The byte layouts here mirror the deployed program's memory layout and must
// never drift: every offset is a contract. All layout arithmetic stays inside
// this package; callers only see typed structs.
package account

import (
	"bytes"
	"crypto/sha256"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Fixed account sizes, including the 8-byte discriminator.
const (
	DropLen        = 125
	ClaimRecordLen = 89

	discriminatorLen = 8
)

// ErrTooShort is returned when a buffer is shorter than the fixed account size.
var ErrTooShort = errors.New("account: buffer too short")

// Account discriminators follow the Anchor convention sha256("account:<Name>")[0..8].
// Computed once at init; fixed for the life of the deployed program.
var (
	dropDiscriminator        = accountDiscriminator("Drop")
	claimRecordDiscriminator = accountDiscriminator("ClaimRecord")
)

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Drop is the decoded on-chain drop account.
//
// Field order matches the program layout exactly; do not reorder.
type Drop struct {
	Creator           solana.PublicKey
	DropID            [32]byte
	TokenMint         solana.PublicKey
	AmountPerClaim    uint64
	MaxClaims         uint32
	CurrentClaims     uint32
	MinFairscaleScore uint16
	IsNativeSol       bool
	IsCanceled        bool
	Bump              uint8
}

// RemainingClaims is derived, never stored. A canceled drop has zero remaining
// claims regardless of its counters.
func (d Drop) RemainingClaims() uint32 {
	if d.IsCanceled {
		return 0
	}
	return d.MaxClaims - d.CurrentClaims
}

// IsActive reports whether the drop still accepts claims.
func (d Drop) IsActive() bool {
	return !d.IsCanceled && d.CurrentClaims < d.MaxClaims
}

// IsEnded reports whether the drop ran out of claims without being canceled.
func (d Drop) IsEnded() bool {
	return !d.IsCanceled && d.CurrentClaims >= d.MaxClaims
}

// ClaimRecord is the decoded per-(drop, claimer) claim receipt.
// Its existence on chain is the at-most-once-claim proof.
type ClaimRecord struct {
	Drop      solana.PublicKey
	Claimer   solana.PublicKey
	ClaimedAt int64
	Amount    uint64
	Bump      uint8
}

// DecodeDrop decodes a raw drop account buffer.
//
// Only the length is validated here; plausibility of field values is a
// business-logic concern layered above the codec.
func DecodeDrop(data []byte) (Drop, error) {
	var d Drop
	if len(data) < DropLen {
		return d, ErrTooShort
	}
	dec := bin.NewBorshDecoder(data[discriminatorLen:DropLen])
	if err := dec.Decode(&d); err != nil {
		return Drop{}, err
	}
	return d, nil
}

// EncodeDrop packs a drop struct with its discriminator, producing the exact
// DropLen-byte on-chain representation.
func EncodeDrop(d Drop) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(dropDiscriminator[:])
	if err := bin.NewBorshEncoder(&buf).Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeClaimRecord decodes a raw claim record buffer.
func DecodeClaimRecord(data []byte) (ClaimRecord, error) {
	var r ClaimRecord
	if len(data) < ClaimRecordLen {
		return r, ErrTooShort
	}
	dec := bin.NewBorshDecoder(data[discriminatorLen:ClaimRecordLen])
	if err := dec.Decode(&r); err != nil {
		return ClaimRecord{}, err
	}
	return r, nil
}

// EncodeClaimRecord packs a claim record struct with its discriminator.
func EncodeClaimRecord(r ClaimRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(claimRecordDiscriminator[:])
	if err := bin.NewBorshEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
