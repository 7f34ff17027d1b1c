package walletauth

import "sync"

// ExpiryBus fans out "session expired" signals reported by the server.
// Anything that receives a signature-expired response publishes the wallet
// address here; authenticators subscribe and re-trigger signing.
type ExpiryBus struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewExpiryBus returns a bus with no subscribers.
func NewExpiryBus() *ExpiryBus {
	return &ExpiryBus{subs: make(map[chan string]struct{})}
}

// Subscribe registers a receiver. The returned cancel func must be called to
// release it.
func (b *ExpiryBus) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 8)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish notifies every subscriber that the wallet's session expired.
// Slow subscribers are skipped, never blocked on.
func (b *ExpiryBus) Publish(walletAddress string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- walletAddress:
		default:
		}
	}
}
