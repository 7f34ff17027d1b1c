// Package pda derives the program addresses used by the FairDrop on-chain program.
//
// Derivation is pure and must match the program's own seed layout byte-for-byte:
// an address derived with different seeds is simply rejected by the ledger, so
// the seed tags below are contract, not convention.
package pda

import (
	"github.com/gagliardetto/solana-go"
)

// Seed tags. Keep in sync with the program's constants.
var (
	platformConfigSeed = []byte("platform_config")
	dropSeed           = []byte("drop")
	vaultSeed          = []byte("vault")
	claimSeed          = []byte("claim")
)

// DropIDLen is the length of the random drop id used in drop address derivation.
const DropIDLen = 32

// PlatformConfig derives the singleton platform config address.
func PlatformConfig(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{platformConfigSeed}, programID)
}

// Drop derives the drop account address for (creator, dropID).
// dropID must be 32 random bytes chosen at creation and never reused per creator.
func Drop(programID, creator solana.PublicKey, dropID [DropIDLen]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{dropSeed, creator.Bytes(), dropID[:]},
		programID,
	)
}

// Vault derives the asset escrow address owned by a drop.
func Vault(programID, drop solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{vaultSeed, drop.Bytes()}, programID)
}

// ClaimRecord derives the per-(drop, claimer) claim receipt address.
// Existence of the account at this address is the at-most-once-claim invariant.
func ClaimRecord(programID, drop, claimer solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{claimSeed, drop.Bytes(), claimer.Bytes()},
		programID,
	)
}
