package claimfeed

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"fairdrop/cmd/chain/ledger"
)

// Event types pushed to subscribers.
const (
	EventSnapshot = "snapshot"
	EventClaim    = "claim"
)

// ClaimEvent is one settled claim as seen by subscribers.
type ClaimEvent struct {
	Claimer   string `json:"claimer"`
	ClaimedAt int64  `json:"claimedAt"`
	Amount    string `json:"amount"`
	TxSig     string `json:"txSig,omitempty"`
}

// Event is the wire frame. A snapshot carries the full claim list on
// subscribe; a claim frame carries exactly one new record.
type Event struct {
	Type   string       `json:"type"`
	Drop   string       `json:"drop"`
	Claims []ClaimEvent `json:"claims,omitempty"`
	Claim  *ClaimEvent  `json:"claim,omitempty"`
	TS     time.Time    `json:"ts"`
}

func toClaimEvent(item ledger.ClaimHistoryItem) ClaimEvent {
	return ClaimEvent{
		Claimer:   item.Claimer.String(),
		ClaimedAt: item.ClaimedAt,
		Amount:    strconv.FormatUint(item.Amount, 10),
		TxSig:     item.TxSig,
	}
}

// Client is one connected subscriber.
//
// Send is never closed by the server so concurrent broadcasters cannot panic;
// done signals the session goroutines to stop instead.
type Client struct {
	SessionID string
	Send      chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(sessionID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		SessionID: sessionID,
		Send:      make(chan Event, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Feed is per-drop membership plus broadcast fanout.
type Feed struct {
	log  *slog.Logger
	Drop string

	mu      sync.RWMutex
	members map[string]*Client
}

func newFeed(log *slog.Logger, drop string) *Feed {
	return &Feed{
		log:     log,
		Drop:    drop,
		members: make(map[string]*Client),
	}
}

// Join adds a subscriber.
func (f *Feed) Join(client *Client) {
	if f == nil || client == nil || client.SessionID == "" {
		return
	}

	f.mu.Lock()
	f.members[client.SessionID] = client
	f.mu.Unlock()

	f.log.Info("claimfeed.member.join", "drop", f.Drop, "session_id", client.SessionID)
}

// Leave removes a subscriber and signals its shutdown. Removal happens
// before Close so broadcasters never race a tearing-down client.
func (f *Feed) Leave(sessionID string) {
	if f == nil || sessionID == "" {
		return
	}

	f.mu.Lock()
	cl := f.members[sessionID]
	delete(f.members, sessionID)
	f.mu.Unlock()

	if cl != nil {
		cl.Close()
	}

	f.log.Info("claimfeed.member.leave", "drop", f.Drop, "session_id", sessionID)
}

// Subscribers reports current membership size.
func (f *Feed) Subscribers() int {
	if f == nil {
		return 0
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.members)
}

// Broadcast fans an event out to all subscribers. Non-blocking: full queues
// and shutting-down clients are skipped, never waited on.
func (f *Feed) Broadcast(ev Event) {
	if f == nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, m := range f.members {
		if m == nil {
			continue
		}

		select {
		case <-m.Done():
			continue
		default:
		}

		select {
		case m.Send <- ev:
		default:
			// Drop rather than block the whole feed.
		}
	}
}

// Hub owns the per-drop feeds.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	feeds map[string]*Feed
}

// NewHub constructs an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		feeds: make(map[string]*Feed),
	}
}

// GetOrCreateFeed returns a stable feed handle for the drop address.
func (h *Hub) GetOrCreateFeed(drop string) *Feed {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f, ok := h.feeds[drop]; ok {
		return f
	}

	f := newFeed(h.log, drop)
	h.feeds[drop] = f
	return f
}

// WatchedDrops returns the drops that currently have subscribers. The poller
// only spends RPC reads on those.
func (h *Hub) WatchedDrops() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.feeds))
	for drop, f := range h.feeds {
		if f.Subscribers() > 0 {
			out = append(out, drop)
		}
	}
	return out
}
