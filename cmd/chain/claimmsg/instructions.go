package claimmsg

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators: sha256("global:<name>")[0..8]. Fixed for the
// deployed program; treat as opaque constants and never recompute.
var (
	DiscCreateDrop = [8]byte{157, 142, 145, 247, 92, 73, 59, 48}
	DiscClaimDrop  = [8]byte{157, 29, 89, 14, 81, 203, 107, 58}
	DiscCancelDrop = [8]byte{78, 206, 101, 116, 70, 101, 44, 238}
	DiscCloseDrop  = [8]byte{179, 36, 175, 45, 105, 230, 234, 147}
)

// Ed25519ProgramID is the native signature-verification program.
var Ed25519ProgramID = solana.MustPublicKeyFromBase58("Ed25519SigVerify111111111111111111111111111")

// ClaimInstructionData packs the claim_drop payload: discriminator, the signed
// timestamp (i64 LE) and score (u16 LE). The program rebuilds the claim
// message from these plus the account keys and checks the ed25519 instruction
// preceding it.
func ClaimInstructionData(timestamp int64, fairscaleScore uint16) []byte {
	data := make([]byte, 8+8+2)
	copy(data, DiscClaimDrop[:])
	binary.LittleEndian.PutUint64(data[8:], uint64(timestamp))
	binary.LittleEndian.PutUint16(data[16:], fairscaleScore)
	return data
}

// ed25519 verify-instruction offsets, single-signature form. The u16 0xFFFF
// instruction index means "this instruction".
const (
	ed25519HeaderLen  = 16
	ed25519CurrentIx  = uint16(0xFFFF)
	ed25519PubkeyOff  = ed25519HeaderLen
	ed25519SigOff     = ed25519PubkeyOff + 32
	ed25519MessageOff = ed25519SigOff + 64
)

// NewEd25519VerifyInstruction builds the native-program instruction that makes
// the ledger itself verify signature over message against pubkey. The claim
// instruction must follow it in the same transaction.
func NewEd25519VerifyInstruction(pubkey solana.PublicKey, message, signature []byte) solana.Instruction {
	data := make([]byte, ed25519MessageOff+len(message))

	data[0] = 1 // one signature
	data[1] = 0 // padding

	binary.LittleEndian.PutUint16(data[2:], uint16(ed25519SigOff))
	binary.LittleEndian.PutUint16(data[4:], ed25519CurrentIx)
	binary.LittleEndian.PutUint16(data[6:], uint16(ed25519PubkeyOff))
	binary.LittleEndian.PutUint16(data[8:], ed25519CurrentIx)
	binary.LittleEndian.PutUint16(data[10:], uint16(ed25519MessageOff))
	binary.LittleEndian.PutUint16(data[12:], uint16(len(message)))
	binary.LittleEndian.PutUint16(data[14:], ed25519CurrentIx)

	copy(data[ed25519PubkeyOff:], pubkey.Bytes())
	copy(data[ed25519SigOff:], signature)
	copy(data[ed25519MessageOff:], message)

	return solana.NewInstruction(Ed25519ProgramID, solana.AccountMetaSlice{}, data)
}

// ClaimAccounts is the ordered account list of the claim_drop instruction.
// Order is part of the program ABI.
type ClaimAccounts struct {
	Drop                solana.PublicKey
	ClaimRecord         solana.PublicKey
	PlatformConfig      solana.PublicKey
	Claimer             solana.PublicKey
	Creator             solana.PublicKey
	Vault               solana.PublicKey
	ClaimerTokenAccount solana.PublicKey
	VaultTokenAccount   solana.PublicKey
	TokenProgram        solana.PublicKey
}

// NewClaimInstruction builds the program claim_drop instruction.
func NewClaimInstruction(programID solana.PublicKey, acc ClaimAccounts, timestamp int64, fairscaleScore uint16) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(acc.Drop).WRITE(),
		solana.Meta(acc.ClaimRecord).WRITE(),
		solana.Meta(acc.PlatformConfig),
		solana.Meta(acc.Claimer).WRITE().SIGNER(),
		solana.Meta(acc.Creator).WRITE(),
		solana.Meta(acc.Vault).WRITE(),
		solana.Meta(acc.ClaimerTokenAccount).WRITE(),
		solana.Meta(acc.VaultTokenAccount).WRITE(),
		solana.Meta(acc.TokenProgram),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarInstructionsPubkey),
	}
	return solana.NewInstruction(programID, metas, ClaimInstructionData(timestamp, fairscaleScore))
}
