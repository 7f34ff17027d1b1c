// Package ledger is the read model over the Solana RPC endpoint plus claim
// transaction assembly. All reads are lock-free: each call observes one
// internally consistent snapshot and callers tolerate staleness.
package ledger

import (
	"context"
	"errors"
	"sort"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"

	"fairdrop/cmd/chain/account"
	"fairdrop/cmd/chain/claimmsg"
	"fairdrop/cmd/chain/pda"
)

// RPC is the subset of the solana-go RPC client the read model uses.
// Narrow on purpose so tests can fake it.
type RPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetSignaturesForAddressWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// Client reads FairDrop program state.
type Client struct {
	rpc       RPC
	programID solana.PublicKey
}

// New constructs a Client for the given program.
func New(rpcClient RPC, programID solana.PublicKey) *Client {
	return &Client{rpc: rpcClient, programID: programID}
}

// DropInfo is a decoded drop account together with its address.
type DropInfo struct {
	Address solana.PublicKey
	account.Drop
}

// ClaimHistoryItem is one settled claim, with a best-effort transaction
// signature for explorer links.
type ClaimHistoryItem struct {
	Claimer   solana.PublicKey
	ClaimedAt int64
	Amount    uint64
	TxSig     string
}

// FetchDrop returns the decoded drop at addr, or nil when no account exists.
func (c *Client) FetchDrop(ctx context.Context, addr solana.PublicKey) (*DropInfo, error) {
	res, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, nil
	}

	drop, err := account.DecodeDrop(res.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	return &DropInfo{Address: addr, Drop: drop}, nil
}

// FetchDropsByCreator scans the program for drop accounts whose creator field
// matches, sorted active first, then ended, then canceled, and within a rank
// by remaining claims descending.
func (c *Client) FetchDropsByCreator(ctx context.Context, creator solana.PublicKey) ([]DropInfo, error) {
	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.programID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{DataSize: account.DropLen},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 8, // creator sits right after the discriminator
				Bytes:  solana.Base58(creator.Bytes()),
			}},
		},
	})
	if err != nil {
		return nil, err
	}

	drops := make([]DropInfo, 0, len(out))
	for _, ka := range out {
		if ka == nil || ka.Account == nil {
			continue
		}
		drop, err := account.DecodeDrop(ka.Account.Data.GetBinary())
		if err != nil {
			continue
		}
		drops = append(drops, DropInfo{Address: ka.Pubkey, Drop: drop})
	}

	sort.SliceStable(drops, func(i, j int) bool {
		ri, rj := dropRank(drops[i].Drop), dropRank(drops[j].Drop)
		if ri != rj {
			return ri < rj
		}
		return drops[i].RemainingClaims() > drops[j].RemainingClaims()
	})
	return drops, nil
}

func dropRank(d account.Drop) int {
	switch {
	case d.IsActive():
		return 0
	case d.IsEnded():
		return 1
	default:
		return 2
	}
}

// FetchClaimHistory returns all settled claims for a drop, oldest first.
// Transaction signatures are resolved best-effort; a lookup failure leaves
// TxSig empty rather than failing the whole history.
func (c *Client) FetchClaimHistory(ctx context.Context, drop solana.PublicKey) ([]ClaimHistoryItem, error) {
	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.programID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{DataSize: account.ClaimRecordLen},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 8, // drop back-reference after the discriminator
				Bytes:  solana.Base58(drop.Bytes()),
			}},
		},
	})
	if err != nil {
		return nil, err
	}

	items := make([]ClaimHistoryItem, 0, len(out))
	for _, ka := range out {
		if ka == nil || ka.Account == nil {
			continue
		}
		rec, err := account.DecodeClaimRecord(ka.Account.Data.GetBinary())
		if err != nil {
			continue
		}

		item := ClaimHistoryItem{
			Claimer:   rec.Claimer,
			ClaimedAt: rec.ClaimedAt,
			Amount:    rec.Amount,
		}

		limit := 1
		sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, ka.Pubkey, &rpc.GetSignaturesForAddressOpts{Limit: &limit})
		if err == nil && len(sigs) > 0 {
			item.TxSig = sigs[0].Signature.String()
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ClaimedAt < items[j].ClaimedAt
	})
	return items, nil
}

// HasClaimed reports whether a claim record already exists for (drop, claimer).
// Record existence is authoritative over any cached client state.
func (c *Client) HasClaimed(ctx context.Context, drop, claimer solana.PublicKey) (bool, error) {
	record, _, err := pda.ClaimRecord(c.programID, drop, claimer)
	if err != nil {
		return false, err
	}
	res, err := c.rpc.GetAccountInfo(ctx, record)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return res != nil && res.Value != nil, nil
}

// DropCreationTime returns the block time of the oldest known signature for
// the drop account, or 0 when it cannot be determined.
func (c *Client) DropCreationTime(ctx context.Context, drop solana.PublicKey) (int64, error) {
	limit := 20
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, drop, &rpc.GetSignaturesForAddressOpts{Limit: &limit})
	if err != nil {
		return 0, err
	}
	if len(sigs) == 0 {
		return 0, nil
	}
	oldest := sigs[len(sigs)-1]
	if oldest.BlockTime == nil {
		return 0, nil
	}
	return oldest.BlockTime.Time().Unix(), nil
}

// BuildClaimTransaction assembles the two-instruction claim transaction:
// the native ed25519 verification over the canonical claim message, then the
// program claim instruction. For SPL drops a create-ATA instruction is
// prepended when the claimer has no token account yet.
func (c *Client) BuildClaimTransaction(ctx context.Context, drop DropInfo, claimer solana.PublicKey, token ClaimAuthorization) (*solana.Transaction, error) {
	platformConfig, _, err := pda.PlatformConfig(c.programID)
	if err != nil {
		return nil, err
	}
	vault, _, err := pda.Vault(c.programID, drop.Address)
	if err != nil {
		return nil, err
	}
	claimRecord, _, err := pda.ClaimRecord(c.programID, drop.Address, claimer)
	if err != nil {
		return nil, err
	}

	backendKey, err := solana.PublicKeyFromBase58(token.BackendPubkey)
	if err != nil {
		return nil, err
	}
	sig, err := solana.SignatureFromBase58(token.Signature)
	if err != nil {
		return nil, err
	}
	message := claimmsg.BuildMessage(drop.DropID, claimer, token.Timestamp, token.FairscaleScore)

	accounts := claimmsg.ClaimAccounts{
		Drop:           drop.Address,
		ClaimRecord:    claimRecord,
		PlatformConfig: platformConfig,
		Claimer:        claimer,
		Creator:        drop.Creator,
		Vault:          vault,
		// Native-SOL drops pass the program id in the token-account slots;
		// the program ignores them.
		ClaimerTokenAccount: c.programID,
		VaultTokenAccount:   c.programID,
		TokenProgram:        c.programID,
	}

	var instructions []solana.Instruction

	if !drop.IsNativeSol {
		claimerTA, _, err := solana.FindAssociatedTokenAddress(claimer, drop.TokenMint)
		if err != nil {
			return nil, err
		}
		vaultTA, _, err := solana.FindAssociatedTokenAddress(vault, drop.TokenMint)
		if err != nil {
			return nil, err
		}
		accounts.ClaimerTokenAccount = claimerTA
		accounts.VaultTokenAccount = vaultTA
		accounts.TokenProgram = solana.TokenProgramID

		exists, err := c.accountExists(ctx, claimerTA)
		if err != nil {
			return nil, err
		}
		if !exists {
			instructions = append(instructions,
				ata.NewCreateInstruction(claimer, claimer, drop.TokenMint).Build())
		}
	}

	instructions = append(instructions,
		claimmsg.NewEd25519VerifyInstruction(backendKey, message, sig[:]),
		claimmsg.NewClaimInstruction(c.programID, accounts, token.Timestamp, token.FairscaleScore),
	)

	blockhash, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	return solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(claimer),
	)
}

func (c *Client) accountExists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	res, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return res != nil && res.Value != nil, nil
}

// ClaimAuthorization is the backend-issued capability consumed by
// BuildClaimTransaction. Mirrors signer.ClaimToken without importing it, so
// chain packages stay free of backend dependencies.
type ClaimAuthorization struct {
	Timestamp      int64
	FairscaleScore uint16
	Signature      string
	BackendPubkey  string
}
