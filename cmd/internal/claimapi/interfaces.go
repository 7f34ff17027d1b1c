package claimapi

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/chain/ledger"
	"fairdrop/cmd/internal/fairscale"
	"fairdrop/cmd/security/signer"
)

// ChainReader is the slice of the ledger read model the API needs.
// Narrow so tests can substitute canned drops.
type ChainReader interface {
	FetchDrop(ctx context.Context, addr solana.PublicKey) (*ledger.DropInfo, error)
}

// SlugDirectory binds claim links to drops.
type SlugDirectory interface {
	Create(ctx context.Context, dropAddress, creator string) (string, error)
	Verify(ctx context.Context, slug, dropAddress string) (bool, error)
	SlugsByCreator(ctx context.Context, dropAddresses []string, creator string) (map[string]string, error)
}

// ScoreProvider looks up a wallet's reputation score.
type ScoreProvider interface {
	Score(ctx context.Context, walletAddress string) (fairscale.Result, error)
}

// TokenIssuer signs claim authorizations.
type TokenIssuer interface {
	Issue(dropID [32]byte, claimer solana.PublicKey, fairscaleScore uint16) (signer.ClaimToken, error)
}
