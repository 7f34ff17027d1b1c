package ledger

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"fairdrop/cmd/chain/account"
	"fairdrop/cmd/chain/pda"
)

var testProgramID = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")

type fakeRPC struct {
	accounts        map[solana.PublicKey][]byte
	programAccounts []*rpc.KeyedAccount
	signatures      map[solana.PublicKey][]*rpc.TransactionSignature
	blockhash       solana.Hash
}

func (f *fakeRPC) GetAccountInfo(_ context.Context, addr solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	data, ok := f.accounts[addr]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: testProgramID,
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		},
	}, nil
}

func (f *fakeRPC) GetProgramAccountsWithOpts(_ context.Context, _ solana.PublicKey, _ *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	return f.programAccounts, nil
}

func (f *fakeRPC) GetSignaturesForAddressWithOpts(_ context.Context, addr solana.PublicKey, _ *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
	return f.signatures[addr], nil
}

func (f *fakeRPC) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: f.blockhash},
	}, nil
}

func mustKey(t *testing.T) solana.PublicKey {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return priv.PublicKey()
}

func encodeDrop(t *testing.T, d account.Drop) []byte {
	t.Helper()
	raw, err := account.EncodeDrop(d)
	if err != nil {
		t.Fatalf("encode drop: %v", err)
	}
	return raw
}

func TestFetchDrop(t *testing.T) {
	t.Parallel()

	creator := mustKey(t)
	addr := mustKey(t)
	drop := account.Drop{Creator: creator, MaxClaims: 5, CurrentClaims: 1, AmountPerClaim: 100}

	c := New(&fakeRPC{accounts: map[solana.PublicKey][]byte{addr: encodeDrop(t, drop)}}, testProgramID)

	got, err := c.FetchDrop(context.Background(), addr)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got == nil {
		t.Fatalf("expected drop, got nil")
	}
	if got.Address != addr || got.Creator != creator || got.MaxClaims != 5 {
		t.Fatalf("unexpected drop: %+v", got)
	}

	missing, err := c.FetchDrop(context.Background(), mustKey(t))
	if err != nil {
		t.Fatalf("fetch missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing account, got %+v", missing)
	}
}

func TestFetchDropsByCreatorOrdering(t *testing.T) {
	t.Parallel()

	creator := mustKey(t)
	mkAccount := func(d account.Drop) *rpc.KeyedAccount {
		return &rpc.KeyedAccount{
			Pubkey: mustKey(t),
			Account: &rpc.Account{
				Owner: testProgramID,
				Data:  rpc.DataBytesOrJSONFromBytes(encodeDrop(t, d)),
			},
		}
	}

	canceled := account.Drop{Creator: creator, MaxClaims: 10, CurrentClaims: 1, IsCanceled: true}
	ended := account.Drop{Creator: creator, MaxClaims: 10, CurrentClaims: 10}
	smallActive := account.Drop{Creator: creator, MaxClaims: 10, CurrentClaims: 8}
	bigActive := account.Drop{Creator: creator, MaxClaims: 10, CurrentClaims: 1}

	c := New(&fakeRPC{
		programAccounts: []*rpc.KeyedAccount{
			mkAccount(canceled), mkAccount(ended), mkAccount(smallActive), mkAccount(bigActive),
		},
	}, testProgramID)

	drops, err := c.FetchDropsByCreator(context.Background(), creator)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(drops) != 4 {
		t.Fatalf("len = %d, want 4", len(drops))
	}

	if !drops[0].IsActive() || drops[0].RemainingClaims() != 9 {
		t.Fatalf("slot 0 should be the big active drop: %+v", drops[0])
	}
	if !drops[1].IsActive() || drops[1].RemainingClaims() != 2 {
		t.Fatalf("slot 1 should be the small active drop: %+v", drops[1])
	}
	if !drops[2].IsEnded() {
		t.Fatalf("slot 2 should be ended: %+v", drops[2])
	}
	if !drops[3].IsCanceled {
		t.Fatalf("slot 3 should be canceled: %+v", drops[3])
	}
}

func TestFetchClaimHistorySorted(t *testing.T) {
	t.Parallel()

	drop := mustKey(t)
	mkRecord := func(claimedAt int64) *rpc.KeyedAccount {
		raw, err := account.EncodeClaimRecord(account.ClaimRecord{
			Drop:      drop,
			Claimer:   mustKey(t),
			ClaimedAt: claimedAt,
			Amount:    7,
		})
		if err != nil {
			t.Fatalf("encode record: %v", err)
		}
		return &rpc.KeyedAccount{
			Pubkey:  mustKey(t),
			Account: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(raw)},
		}
	}

	c := New(&fakeRPC{
		programAccounts: []*rpc.KeyedAccount{mkRecord(300), mkRecord(100), mkRecord(200)},
	}, testProgramID)

	items, err := c.FetchClaimHistory(context.Background(), drop)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i, want := range []int64{100, 200, 300} {
		if items[i].ClaimedAt != want {
			t.Fatalf("item %d claimedAt = %d, want %d", i, items[i].ClaimedAt, want)
		}
	}
}

func TestHasClaimed(t *testing.T) {
	t.Parallel()

	drop := mustKey(t)
	claimer := mustKey(t)
	record, _, err := pda.ClaimRecord(testProgramID, drop, claimer)
	if err != nil {
		t.Fatalf("pda: %v", err)
	}

	rec, err := account.EncodeClaimRecord(account.ClaimRecord{Drop: drop, Claimer: claimer})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	c := New(&fakeRPC{accounts: map[solana.PublicKey][]byte{record: rec}}, testProgramID)

	claimed, err := c.HasClaimed(context.Background(), drop, claimer)
	if err != nil {
		t.Fatalf("has claimed: %v", err)
	}
	if !claimed {
		t.Fatalf("expected claimed=true")
	}

	claimed, err = c.HasClaimed(context.Background(), drop, mustKey(t))
	if err != nil {
		t.Fatalf("has claimed other: %v", err)
	}
	if claimed {
		t.Fatalf("expected claimed=false for other claimer")
	}
}

func TestBuildClaimTransactionNativeSol(t *testing.T) {
	t.Parallel()

	backend, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	claimer := mustKey(t)
	creator := mustKey(t)

	drop := DropInfo{
		Address: mustKey(t),
		Drop: account.Drop{
			Creator:     creator,
			MaxClaims:   10,
			IsNativeSol: true,
		},
	}

	sig, err := backend.Sign([]byte("placeholder"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	c := New(&fakeRPC{}, testProgramID)
	tx, err := c.BuildClaimTransaction(context.Background(), drop, claimer, ClaimAuthorization{
		Timestamp:      1_767_225_600,
		FairscaleScore: 500,
		Signature:      sig.String(),
		BackendPubkey:  backend.PublicKey().String(),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(tx.Message.Instructions) != 2 {
		t.Fatalf("instruction count = %d, want 2 (ed25519 verify + claim)", len(tx.Message.Instructions))
	}
	payer := tx.Message.AccountKeys[0]
	if !payer.Equals(claimer) {
		t.Fatalf("fee payer = %s, want claimer %s", payer, claimer)
	}
}
