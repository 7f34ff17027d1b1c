package claimfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/chain/ledger"
)

type fakeHistory struct {
	items map[solana.PublicKey][]ledger.ClaimHistoryItem
	err   error
}

func (f *fakeHistory) FetchClaimHistory(_ context.Context, drop solana.PublicKey) ([]ledger.ClaimHistoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[drop], nil
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return k.PublicKey()
}

func TestPollerBroadcastsOnlyNewClaims(t *testing.T) {
	t.Parallel()

	drop := newKey(t)
	alice := newKey(t)
	bob := newKey(t)

	reader := &fakeHistory{items: map[solana.PublicKey][]ledger.ClaimHistoryItem{
		drop: {{Claimer: alice, ClaimedAt: 100, Amount: 5_000, TxSig: "sig-a"}},
	}}

	hub := NewHub(testLogger())
	c := NewClient("s1", 8)
	hub.GetOrCreateFeed(drop.String()).Join(c)

	clock := time.Date(2026, time.January, 15, 8, 0, 0, 0, time.UTC)
	p := NewPoller(testLogger(), hub, reader, WithClock(func() time.Time { return clock }))

	p.pollOnce(context.Background())

	select {
	case ev := <-c.Send:
		if ev.Type != EventClaim || ev.Claim == nil {
			t.Fatalf("event = %+v", ev)
		}
		if ev.Claim.Claimer != alice.String() || ev.Claim.Amount != "5000" || ev.Claim.TxSig != "sig-a" {
			t.Fatalf("claim = %+v", ev.Claim)
		}
	default:
		t.Fatalf("no event broadcast for a fresh claim")
	}

	// Same history again: nothing new to broadcast.
	p.pollOnce(context.Background())
	if len(c.Send) != 0 {
		t.Fatalf("duplicate claim rebroadcast")
	}

	// A second claimer appears: exactly one new event.
	reader.items[drop] = append(reader.items[drop],
		ledger.ClaimHistoryItem{Claimer: bob, ClaimedAt: 200, Amount: 5_000})
	p.pollOnce(context.Background())

	if len(c.Send) != 1 {
		t.Fatalf("queued events = %d, want 1", len(c.Send))
	}
	ev := <-c.Send
	if ev.Claim == nil || ev.Claim.Claimer != bob.String() {
		t.Fatalf("event = %+v", ev)
	}
}

func TestPollerSkipsUnwatchedDrops(t *testing.T) {
	t.Parallel()

	drop := newKey(t)
	reader := &fakeHistory{err: errors.New("rpc should not be called")}

	hub := NewHub(testLogger())
	hub.GetOrCreateFeed(drop.String()) // feed exists but has no subscribers

	p := NewPoller(testLogger(), hub, reader)
	p.pollOnce(context.Background()) // must not touch the reader

	// An error from the reader would have been logged, not surfaced; the
	// real assertion is that seen stays empty.
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seen) != 0 {
		t.Fatalf("poller touched an unwatched drop")
	}
}

func TestSnapshotPrimesDedupe(t *testing.T) {
	t.Parallel()

	drop := newKey(t)
	alice := newKey(t)

	reader := &fakeHistory{items: map[solana.PublicKey][]ledger.ClaimHistoryItem{
		drop: {{Claimer: alice, ClaimedAt: 100, Amount: 7}},
	}}

	hub := NewHub(testLogger())
	c := NewClient("s1", 8)
	hub.GetOrCreateFeed(drop.String()).Join(c)

	p := NewPoller(testLogger(), hub, reader)

	snap, err := p.Snapshot(context.Background(), drop.String())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 1 || snap[0].Claimer != alice.String() || snap[0].Amount != "7" {
		t.Fatalf("snapshot = %+v", snap)
	}

	// The snapshot already delivered this record; polling must not repeat it.
	p.pollOnce(context.Background())
	if len(c.Send) != 0 {
		t.Fatalf("snapshot record rebroadcast by the poller")
	}
}

func TestSnapshotRejectsBadAddress(t *testing.T) {
	t.Parallel()

	p := NewPoller(testLogger(), NewHub(testLogger()), &fakeHistory{})
	if _, err := p.Snapshot(context.Background(), "not-an-address"); err == nil {
		t.Fatalf("expected address parse error")
	}
}
