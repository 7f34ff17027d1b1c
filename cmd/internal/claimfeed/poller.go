package claimfeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"fairdrop/cmd/chain/ledger"
)

const defaultPollInterval = 15 * time.Second

// HistoryReader is the slice of the ledger read model the poller needs.
type HistoryReader interface {
	FetchClaimHistory(ctx context.Context, drop solana.PublicKey) ([]ledger.ClaimHistoryItem, error)
}

// Poller periodically reads claim history for every watched drop and
// broadcasts records it has not seen before.
type Poller struct {
	log      *slog.Logger
	hub      *Hub
	reader   HistoryReader
	interval time.Duration
	now      func() time.Time

	// seen claimers per drop. A claim record exists at most once per
	// (drop, claimer), so the claimer address is the dedupe key. Guarded by
	// mu: the poll loop and per-connection snapshots race on it.
	mu   sync.Mutex
	seen map[string]map[string]struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the poll cadence.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if p == nil || d <= 0 {
			return
		}
		p.interval = d
	}
}

// WithClock replaces the event timestamp source. Useful in tests.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) {
		if p == nil || now == nil {
			return
		}
		p.now = now
	}
}

// NewPoller constructs a poller over the hub's watched drops.
func NewPoller(log *slog.Logger, hub *Hub, reader HistoryReader, opts ...PollerOption) *Poller {
	if log == nil {
		log = slog.Default()
	}
	p := &Poller{
		log:      log,
		hub:      hub,
		reader:   reader,
		interval: defaultPollInterval,
		now:      time.Now,
		seen:     make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce fetches history for every watched drop and broadcasts new records.
// A fetch failure skips that drop for this round; the next tick retries.
func (p *Poller) pollOnce(ctx context.Context) {
	for _, drop := range p.hub.WatchedDrops() {
		addr, err := solana.PublicKeyFromBase58(drop)
		if err != nil {
			continue
		}

		items, err := p.reader.FetchClaimHistory(ctx, addr)
		if err != nil {
			p.log.Error("claimfeed.poll.fail", "drop", drop, "err", err)
			continue
		}

		feed := p.hub.GetOrCreateFeed(drop)
		for _, item := range items {
			claimer := item.Claimer.String()
			if p.markSeen(drop, claimer) {
				continue
			}

			ev := toClaimEvent(item)
			feed.Broadcast(Event{
				Type:  EventClaim,
				Drop:  drop,
				Claim: &ev,
				TS:    p.now().UTC(),
			})
		}
	}
}

// Snapshot returns the drop's current history and primes the dedupe set so
// the poller does not rebroadcast records the subscriber already received.
func (p *Poller) Snapshot(ctx context.Context, drop string) ([]ClaimEvent, error) {
	addr, err := solana.PublicKeyFromBase58(drop)
	if err != nil {
		return nil, err
	}

	items, err := p.reader.FetchClaimHistory(ctx, addr)
	if err != nil {
		return nil, err
	}

	out := make([]ClaimEvent, 0, len(items))
	for _, item := range items {
		p.markSeen(drop, item.Claimer.String())
		out = append(out, toClaimEvent(item))
	}
	return out, nil
}

// markSeen records the (drop, claimer) pair and reports whether it was
// already present.
func (p *Poller) markSeen(drop, claimer string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.seen[drop]
	if !ok {
		set = make(map[string]struct{})
		p.seen[drop] = set
	}
	if _, dup := set[claimer]; dup {
		return true
	}
	set[claimer] = struct{}{}
	return false
}
