// Package claimmsg builds the canonical claim message and the claim
// instruction payloads for the FairDrop program.
//
// BuildMessage is the single source of truth for the signed message layout.
// The backend signs exactly these bytes and the on-chain verifier reconstructs
// exactly these bytes; any second implementation of this layout is a bug.
package claimmsg

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// MessagePrefix tags claim messages so a backend signature can never be
// replayed as some other kind of attestation. Must match the program constant.
const MessagePrefix = "FairDrop-claim:"

// MessageLen is prefix + dropID(32) + claimer(32) + timestamp(8) + score(2).
const MessageLen = len(MessagePrefix) + 74

// BuildMessage packs the bytes signed by the token issuer and verified on
// chain: prefix, dropID, claimer, unix-seconds timestamp (i64 LE), fairscale
// score (u16 LE).
func BuildMessage(dropID [32]byte, claimer solana.PublicKey, timestamp int64, fairscaleScore uint16) []byte {
	msg := make([]byte, MessageLen)
	off := copy(msg, MessagePrefix)
	off += copy(msg[off:], dropID[:])
	off += copy(msg[off:], claimer.Bytes())
	binary.LittleEndian.PutUint64(msg[off:], uint64(timestamp))
	off += 8
	binary.LittleEndian.PutUint16(msg[off:], fairscaleScore)
	return msg
}
